package mockapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/MrEthical07/hrclient"
	"github.com/MrEthical07/hrclient/employees"
)

func (s *Server) listEmployees(c echo.Context) error {
	acct := c.Get(ctxAccount).(*account)
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", employees.DefaultLimit)
	if limit > employees.MaxLimit {
		limit = employees.MaxLimit
	}
	if skip < 0 || limit < 1 {
		return detail(http.StatusUnprocessableEntity, "skip and limit must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !acct.IsAdmin {
		// Non-admins only ever see their own record.
		if e := s.data.employeeByUser(acct.ID); e != nil {
			return c.JSON(http.StatusOK, employees.Page{Items: []employees.Employee{*e}, Total: 1, Page: 1, Size: 1, Pages: 1})
		}
		return c.JSON(http.StatusOK, employees.Page{Items: []employees.Employee{}, Page: 1, Size: limit})
	}

	items, total := s.data.list(listFilter{
		search:     c.QueryParam("search"),
		department: c.QueryParam("department"),
		status:     c.QueryParam("status"),
	}, skip, limit)
	return c.JSON(http.StatusOK, employees.Page{
		Items: items,
		Total: total,
		Page:  skip/limit + 1,
		Size:  limit,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	})
}

func (s *Server) getEmployee(c echo.Context) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(c, id); err != nil {
		return err
	}
	e := s.data.employee(id)
	if e == nil {
		return detail(http.StatusNotFound, "Employee not found")
	}

	d := employees.Detail{Employee: *e}
	if u := s.data.accountByID(e.UserID); u != nil {
		d.UserEmail = u.Email
		d.UserName = u.Name
		d.UserPicture = u.Picture
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) employeeByUser(c echo.Context) error {
	acct := c.Get(ctxAccount).(*account)
	userID, err := pathInt(c, "user_id")
	if err != nil {
		return err
	}
	if !acct.IsAdmin && acct.ID != userID {
		return detail(http.StatusForbidden, "Access denied")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.data.employeeByUser(userID)
	if e == nil {
		return detail(http.StatusNotFound, "Employee profile not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) createEmployee(c echo.Context) error {
	acct := c.Get(ctxAccount).(*account)
	if !acct.IsAdmin {
		return detail(http.StatusForbidden, "Admin access required")
	}

	var in employees.Create
	if err := c.Bind(&in); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}
	if missing := missingFields(in); len(missing) > 0 {
		return detail(http.StatusUnprocessableEntity, missing)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.accountByID(in.UserID) == nil {
		return detail(http.StatusNotFound, "User not found")
	}
	if s.data.employeeByUser(in.UserID) != nil {
		return detail(http.StatusBadRequest, "User already has an employee profile")
	}
	e := s.data.addEmployee(in.UserID, in.Profile, time.Now().UTC())
	return c.JSON(http.StatusOK, e)
}

func (s *Server) updateEmployee(c echo.Context) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	var in employees.Update
	if err := c.Bind(&in); err != nil {
		return detail(http.StatusUnprocessableEntity, "Invalid request body")
	}
	if in == (employees.Update{}) {
		return detail(http.StatusBadRequest, "No update data provided")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(c, id); err != nil {
		return err
	}
	e := s.data.employee(id)
	if e == nil {
		return detail(http.StatusNotFound, "Employee not found")
	}
	applyUpdate(&e.Profile, in)
	e.UpdatedAt = hrclient.Time{Time: time.Now().UTC()}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) deleteEmployee(c echo.Context) error {
	acct := c.Get(ctxAccount).(*account)
	if !acct.IsAdmin {
		return detail(http.StatusForbidden, "Admin access required")
	}
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.data.employee(id)
	if e == nil {
		return detail(http.StatusNotFound, "Employee not found")
	}
	e.IsActive = false
	return c.JSON(http.StatusOK, map[string]string{"message": "Employee profile deleted successfully"})
}

func (s *Server) documents(c echo.Context) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAccessLocked(c, id); err != nil {
		return err
	}
	docs := s.data.documents[id]
	if docs == nil {
		docs = []employees.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

// checkAccessLocked lets admins through and everyone else only to their own record.
func (s *Server) checkAccessLocked(c echo.Context, employeeID int) error {
	acct := c.Get(ctxAccount).(*account)
	if acct.IsAdmin {
		return nil
	}
	own := s.data.employeeByUser(acct.ID)
	if own == nil || own.ID != employeeID {
		return detail(http.StatusForbidden, "Access denied")
	}
	return nil
}

func missingFields(in employees.Create) []map[string]any {
	var out []map[string]any
	add := func(field string) {
		out = append(out, map[string]any{
			"loc":  []string{"body", field},
			"msg":  "field required",
			"type": "value_error.missing",
		})
	}
	if in.EmployeeID == "" {
		add("employee_id")
	}
	if in.FirstName == "" {
		add("first_name")
	}
	if in.LastName == "" {
		add("last_name")
	}
	if in.UserID == 0 {
		add("user_id")
	}
	return out
}

func applyUpdate(p *employees.Profile, in employees.Update) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, in.FirstName)
	set(&p.LastName, in.LastName)
	set(&p.PhoneNumber, in.PhoneNumber)
	set(&p.Department, in.Department)
	set(&p.Position, in.Position)
	set(&p.EmployeeStatus, in.EmployeeStatus)
	set(&p.AddressLine1, in.AddressLine1)
	set(&p.AddressLine2, in.AddressLine2)
	set(&p.City, in.City)
	set(&p.State, in.State)
	set(&p.Country, in.Country)
	set(&p.PostalCode, in.PostalCode)
	set(&p.Bio, in.Bio)
	set(&p.Skills, in.Skills)
}

func pathInt(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, detail(http.StatusUnprocessableEntity, name+" must be an integer")
	}
	return v, nil
}

func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
