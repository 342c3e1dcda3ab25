package portal

import "time"

// Request status values
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Staff roles
const (
	RoleAdmin    = "admin"
	RoleVerifier = "verifier"
	RoleInserter = "inserter"
)

// User is the audit-display reference carried on a request
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Assignee is the staff member a request is delegated to
type Assignee struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
}

// Request is one patient registration as seen by the client. Identity is
// the server-assigned ID; the in-memory collection never holds two records
// with the same one.
type Request struct {
	ID            int        `json:"id"`
	FullName      string     `json:"full_name"`
	NationalID    int64      `json:"national_id"`
	MedicalNumber *int64     `json:"medical_number"`
	Notes         *string    `json:"notes"`
	Status        string     `json:"status"`
	Assignee      *Assignee  `json:"assignee"`
	Creator       *User      `json:"creator,omitempty"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// localized returns a copy with timestamps rebased into loc. Applied once,
// when a record enters the store.
func (r Request) localized(loc *time.Location) Request {
	if r.CreatedAt != nil {
		t := r.CreatedAt.In(loc)
		r.CreatedAt = &t
	}
	if r.UpdatedAt != nil {
		t := r.UpdatedAt.In(loc)
		r.UpdatedAt = &t
	}
	return r
}

// ListResponse is the paginated shape of GET /requests/
type ListResponse struct {
	Results   []Request `json:"results"`
	Remaining int64     `json:"remaining"`
	Length    int64     `json:"length"`
}

// Stats is the scalar counter payload of GET /requests/stats
type Stats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Today     int64 `json:"today"`
}

// AssigneeListResponse is the paginated shape of GET /assignees/
type AssigneeListResponse struct {
	Results   []Assignee `json:"results"`
	Remaining int64      `json:"remaining"`
	Length    int64      `json:"length"`
}

// AssigneeStat is one row of GET /assignees/stats
type AssigneeStat struct {
	FullName  string `json:"full_name"`
	Completed int64  `json:"completed"`
}

// UserListResponse is the paginated shape of GET /users/
type UserListResponse struct {
	Results   []User `json:"results"`
	Remaining int64  `json:"remaining"`
	Length    int64  `json:"length"`
}

// LoginResponse is the payload of POST /auth/login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}
