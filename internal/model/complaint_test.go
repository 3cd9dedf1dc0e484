package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplaintStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from, to ComplaintStatus
		allowed  bool
	}{
		{ComplaintPending, ComplaintForwarded, true},
		{ComplaintPending, ComplaintResolved, true},
		{ComplaintForwarded, ComplaintResolved, true},
		{ComplaintForwarded, ComplaintPending, false},
		{ComplaintForwarded, ComplaintForwarded, false},
		{ComplaintResolved, ComplaintForwarded, false},
		{ComplaintResolved, ComplaintPending, false},
		{ComplaintResolved, ComplaintResolved, false},
		{ComplaintPending, ComplaintPending, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestComplaintCategory_Valid(t *testing.T) {
	for _, c := range ComplaintCategories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, ComplaintCategory("Noise").Valid())
	assert.False(t, ComplaintCategory("wi-fi").Valid())
}

func TestRoom_FreeSlots(t *testing.T) {
	assert.Equal(t, 2, Room{Capacity: 3, CurrentOccupancy: 1}.FreeSlots())
	assert.Equal(t, 0, Room{Capacity: 2, CurrentOccupancy: 2}.FreeSlots())
	assert.True(t, Room{Capacity: 1}.Available())
	assert.False(t, Room{Capacity: 1, CurrentOccupancy: 1}.Available())
}

func TestPayment_ReceiptID(t *testing.T) {
	assert.Equal(t, "PAY-000042", Payment{ID: 42}.ReceiptID())
}
