package mockapi

import (
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/hrclient"
	"github.com/MrEthical07/hrclient/auth"
	"github.com/MrEthical07/hrclient/employees"
)

type account struct {
	ID        int
	Email     string
	Name      string
	Picture   string
	IsAdmin   bool
	IsActive  bool
	LastLogin time.Time

	// refresh is the one refresh token currently valid for this account.
	refresh string
}

func (a *account) view() auth.User {
	u := auth.User{
		Email:   a.Email,
		Name:    a.Name,
		Picture: a.Picture,
		IsAdmin: a.IsAdmin,
	}
	if !a.LastLogin.IsZero() {
		u.LastLogin = &hrclient.Time{Time: a.LastLogin}
	}
	return u
}

// directory is the server's in-memory data. Callers hold Server.mu.
type directory struct {
	accounts   map[string]*account
	employees  map[int]*employees.Employee
	documents  map[int][]employees.Document
	nextUserID int
	nextEmpID  int
}

func newDirectory() *directory {
	return &directory{
		accounts:   map[string]*account{},
		employees:  map[int]*employees.Employee{},
		documents:  map[int][]employees.Document{},
		nextUserID: 1,
		nextEmpID:  1,
	}
}

func (d *directory) addAccount(email, name string, admin bool) *account {
	a := &account{ID: d.nextUserID, Email: email, Name: name, IsAdmin: admin, IsActive: true}
	d.nextUserID++
	d.accounts[strings.ToLower(email)] = a
	return a
}

func (d *directory) account(email string) *account {
	return d.accounts[strings.ToLower(email)]
}

func (d *directory) accountByID(id int) *account {
	for _, a := range d.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (d *directory) addEmployee(userID int, p employees.Profile, now time.Time) *employees.Employee {
	if p.EmployeeStatus == "" {
		p.EmployeeStatus = "Active"
	}
	e := &employees.Employee{
		Profile:   p,
		ID:        d.nextEmpID,
		UserID:    userID,
		IsActive:  true,
		CreatedAt: hrclient.Time{Time: now},
		UpdatedAt: hrclient.Time{Time: now},
	}
	d.nextEmpID++
	d.employees[e.ID] = e
	return e
}

func (d *directory) employee(id int) *employees.Employee {
	e, ok := d.employees[id]
	if !ok || !e.IsActive {
		return nil
	}
	return e
}

func (d *directory) employeeByUser(userID int) *employees.Employee {
	for _, e := range d.employees {
		if e.UserID == userID && e.IsActive {
			return e
		}
	}
	return nil
}

type listFilter struct {
	search     string
	department string
	status     string
}

func (f listFilter) match(e *employees.Employee) bool {
	if f.department != "" && e.Department != f.department {
		return false
	}
	if f.status != "" && e.EmployeeStatus != f.status {
		return false
	}
	if f.search == "" {
		return true
	}
	needle := strings.ToLower(f.search)
	for _, field := range []string{e.FirstName, e.LastName, e.EmployeeID, e.PersonalEmail} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// list returns active employees matching f ordered by id, then the page.
func (d *directory) list(f listFilter, skip, limit int) ([]employees.Employee, int) {
	var matched []*employees.Employee
	for _, e := range d.employees {
		if e.IsActive && f.match(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	items := make([]employees.Employee, 0, end-skip)
	for _, e := range matched[skip:end] {
		items = append(items, *e)
	}
	return items, total
}

func (d *directory) seed(now time.Time) {
	admin := d.addAccount("admin@example.com", "HR Admin", true)
	staff := d.addAccount("staff@example.com", "Staff Member", false)

	joined := hrclient.NewDate(2021, time.March, 1)
	d.addEmployee(admin.ID, employees.Profile{
		EmployeeID:     "EMP-001",
		FirstName:      "Hana",
		LastName:       "Admin",
		Department:     "People",
		Position:       "HR Lead",
		EmploymentType: "Full-time",
		DateOfJoining:  &joined,
	}, now)
	staffEmp := d.addEmployee(staff.ID, employees.Profile{
		EmployeeID:     "EMP-002",
		FirstName:      "Sam",
		LastName:       "Staff",
		Department:     "Engineering",
		Position:       "Engineer",
		EmploymentType: "Full-time",
		DateOfJoining:  &joined,
	}, now)

	size := int64(48213)
	d.documents[staffEmp.ID] = []employees.Document{{
		ID:           1,
		EmployeeID:   staffEmp.ID,
		DocumentType: "contract",
		DocumentName: "employment-contract.pdf",
		FilePath:     "uploads/employee_2/contract.pdf",
		FileSize:     &size,
		MimeType:     "application/pdf",
		UploadedAt:   hrclient.Time{Time: now},
	}}
}
