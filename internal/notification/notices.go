package notification

import (
	"fmt"

	"hostel-management-backend/internal/model"
)

// ReceiptNotice confirms a completed enrollment.
func ReceiptNotice(student *model.Student, payment *model.Payment, room *model.Room) Notice {
	return Notice{
		StudentID: student.ID,
		Email:     student.Email,
		Subject:   "Hostel fee receipt " + payment.ReceiptID(),
		Body: fmt.Sprintf("Hi %s,\n\nYour payment of %.2f was received (receipt %s).\n"+
			"You have been allotted room %d in hostel %d.\n",
			student.Name, payment.AmountPaid, payment.ReceiptID(), room.ID, room.HostelID),
	}
}

// ArrivalNotice tells a student their arrival was recorded.
func ArrivalNotice(student *model.Student) Notice {
	return Notice{
		StudentID: student.ID,
		Email:     student.Email,
		Subject:   "Arrival confirmed",
		Body:      fmt.Sprintf("Hi %s,\n\nThe warden has confirmed your arrival. You can now raise complaints from your dashboard.\n", student.Name),
	}
}

// ComplaintStatusNotice reports a complaint status change to its owner.
func ComplaintStatusNotice(student *model.Student, complaint *model.Complaint) Notice {
	return Notice{
		StudentID: student.ID,
		Email:     student.Email,
		Subject:   fmt.Sprintf("Complaint #%d: %s", complaint.ID, complaint.Status),
		Body: fmt.Sprintf("Hi %s,\n\nYour %s complaint #%d is now %q.\n",
			student.Name, complaint.Category, complaint.ID, complaint.Status),
	}
}
