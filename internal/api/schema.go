package api

// ColumnKind tells the admin client how to render a column.
type ColumnKind string

const (
	KindText      ColumnKind = "text"
	KindNumber    ColumnKind = "number"
	KindBool      ColumnKind = "bool"
	KindTimestamp ColumnKind = "timestamp"
	KindLink      ColumnKind = "link"
)

// Column is one displayed column of a view. Link is set for KindLink columns.
type Column struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Kind  ColumnKind `json:"kind"`
	Link  *Link      `json:"link,omitempty"`
}

// Link points a column value at a row of another view. The client navigates
// to Route with {value} replaced and highlights the matching row.
type Link struct {
	Table string `json:"table"`
	Route string `json:"route"`
}

// View is an admin table and its columns in display order.
type View struct {
	Table   string   `json:"table"`
	Route   string   `json:"route"`
	Filters []string `json:"filters"`
	Columns []Column `json:"columns"`
}

func linkTo(table string) *Link {
	return &Link{Table: table, Route: "/api/admin/" + table + "?highlight={value}"}
}

var viewSchema = []View{
	{
		Table:   "students",
		Route:   "/api/admin/students",
		Filters: []string{"room_no"},
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindText},
			{Key: "name", Label: "Name", Kind: KindText},
			{Key: "usn", Label: "USN", Kind: KindText},
			{Key: "email", Label: "Email", Kind: KindText},
			{Key: "room_no", Label: "Room", Kind: KindLink, Link: linkTo("rooms")},
			{Key: "fee_id", Label: "Fee", Kind: KindLink, Link: linkTo("payments")},
			{Key: "arrived", Label: "Arrived", Kind: KindBool},
			{Key: "arrival_timestamp", Label: "Arrived At", Kind: KindTimestamp},
			{Key: "created_at", Label: "Created", Kind: KindTimestamp},
		},
	},
	{
		Table:   "rooms",
		Route:   "/api/admin/rooms",
		Filters: []string{"hostel_id", "capacity", "available"},
		Columns: []Column{
			{Key: "id", Label: "Room", Kind: KindNumber},
			{Key: "hostel_id", Label: "Hostel", Kind: KindNumber},
			{Key: "capacity", Label: "Capacity", Kind: KindNumber},
			{Key: "current_occupancy", Label: "Occupancy", Kind: KindNumber},
			{Key: "created_at", Label: "Created", Kind: KindTimestamp},
		},
	},
	{
		Table:   "complaints",
		Route:   "/api/admin/complaints",
		Filters: []string{"student_id", "status"},
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindNumber},
			{Key: "student_id", Label: "Student", Kind: KindLink, Link: linkTo("students")},
			{Key: "student_name", Label: "Name", Kind: KindText},
			{Key: "category", Label: "Category", Kind: KindText},
			{Key: "description", Label: "Description", Kind: KindText},
			{Key: "status", Label: "Status", Kind: KindText},
			{Key: "created_at", Label: "Created", Kind: KindTimestamp},
		},
	},
	{
		Table:   "payments",
		Route:   "/api/admin/payments",
		Filters: []string{"student_id"},
		Columns: []Column{
			{Key: "id", Label: "ID", Kind: KindNumber},
			{Key: "receipt_id", Label: "Receipt", Kind: KindText},
			{Key: "student_id", Label: "Student", Kind: KindLink, Link: linkTo("students")},
			{Key: "amount_paid", Label: "Amount", Kind: KindNumber},
			{Key: "status", Label: "Status", Kind: KindText},
			{Key: "created_at", Label: "Paid At", Kind: KindTimestamp},
		},
	},
}
