package employees

import "github.com/MrEthical07/hrclient"

// Profile holds the fields shared by create requests and responses.
type Profile struct {
	EmployeeID             string         `json:"employee_id"`
	FirstName              string         `json:"first_name"`
	LastName               string         `json:"last_name"`
	DateOfBirth            *hrclient.Date `json:"date_of_birth,omitempty"`
	Gender                 string         `json:"gender,omitempty"`
	Nationality            string         `json:"nationality,omitempty"`
	PhoneNumber            string         `json:"phone_number,omitempty"`
	PersonalEmail          string         `json:"personal_email,omitempty"`
	EmergencyContactName   string         `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber string         `json:"emergency_contact_number,omitempty"`
	Department             string         `json:"department,omitempty"`
	Position               string         `json:"position,omitempty"`
	EmploymentType         string         `json:"employment_type,omitempty"`
	DateOfJoining          *hrclient.Date `json:"date_of_joining,omitempty"`
	EmployeeStatus         string         `json:"employee_status,omitempty"`
	AddressLine1           string         `json:"address_line1,omitempty"`
	AddressLine2           string         `json:"address_line2,omitempty"`
	City                   string         `json:"city,omitempty"`
	State                  string         `json:"state,omitempty"`
	Country                string         `json:"country,omitempty"`
	PostalCode             string         `json:"postal_code,omitempty"`
	Bio                    string         `json:"bio,omitempty"`
	Skills                 string         `json:"skills,omitempty"`
}

// Employee is an employee profile as returned by the API.
type Employee struct {
	Profile
	ID        int           `json:"id"`
	UserID    int           `json:"user_id"`
	IsActive  bool          `json:"is_active"`
	CreatedAt hrclient.Time `json:"created_at"`
	UpdatedAt hrclient.Time `json:"updated_at"`
}

// Detail is the single-employee view, which adds the linked user account.
type Detail struct {
	Employee
	UserEmail   string `json:"user_email,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	UserPicture string `json:"user_picture,omitempty"`
}

// Create is the body of a create request.
type Create struct {
	Profile
	UserID int `json:"user_id"`
}

// Update is a partial update. Nil fields are left unchanged.
type Update struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	Department     *string `json:"department,omitempty"`
	Position       *string `json:"position,omitempty"`
	EmployeeStatus *string `json:"employee_status,omitempty"`
	AddressLine1   *string `json:"address_line1,omitempty"`
	AddressLine2   *string `json:"address_line2,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	Country        *string `json:"country,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Skills         *string `json:"skills,omitempty"`
}

// Document is a file attached to an employee.
type Document struct {
	ID           int            `json:"id"`
	EmployeeID   int            `json:"employee_id"`
	DocumentType string         `json:"document_type"`
	DocumentName string         `json:"document_name"`
	FilePath     string         `json:"file_path"`
	FileSize     *int64         `json:"file_size,omitempty"`
	MimeType     string         `json:"mime_type,omitempty"`
	UploadedAt   hrclient.Time  `json:"uploaded_at"`
	IsVerified   bool           `json:"is_verified"`
	VerifiedAt   *hrclient.Time `json:"verified_at,omitempty"`
}

// Page is one page of a list call.
type Page struct {
	Items []Employee `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Pages int        `json:"pages"`
}

// String returns a pointer to s, for building Update values.
func String(s string) *string { return &s }
