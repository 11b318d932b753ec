package employees

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/MrEthical07/hrclient"
)

const (
	basePath = "/api/employees/"

	// DefaultLimit is the page size used when ListParams.Limit is zero.
	DefaultLimit = 20
	// MaxLimit is the largest page size the backend serves.
	MaxLimit = 100
)

// ErrEmptyUpdate is returned by Update when no field is set.
var ErrEmptyUpdate = errors.New("employees: no update data provided")

// ListParams selects a page of employees. Empty filters are omitted.
type ListParams struct {
	Skip       int
	Limit      int
	Search     string
	Department string
	Status     string
}

func (p ListParams) query() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}

	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Department != "" {
		q.Set("department", p.Department)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}

// Client is the employees resource client.
type Client struct {
	client *hrclient.Client
}

// New returns an employees client bound to c.
func New(c *hrclient.Client) *Client {
	return &Client{client: c}
}

// List returns one page of employees. Non-admin users get only their own
// profile, as decided by the backend.
func (c *Client) List(ctx context.Context, p ListParams) (*Page, error) {
	var page Page
	if err := c.client.Get(ctx, basePath, p.query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []Employee{}
	}
	return &page, nil
}

// Get returns the employee with the given id.
func (c *Client) Get(ctx context.Context, id int) (*Detail, error) {
	var d Detail
	if err := c.client.Get(ctx, employeePath(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByUser returns the employee profile linked to a user account.
func (c *Client) GetByUser(ctx context.Context, userID int) (*Employee, error) {
	var e Employee
	if err := c.client.Get(ctx, basePath+"user/"+strconv.Itoa(userID), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create adds an employee profile. Admin only.
func (c *Client) Create(ctx context.Context, in Create) (*Employee, error) {
	if in.EmployeeID == "" || in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: employee_id, first_name and last_name are required", hrclient.ErrInvalidRequest)
	}
	var e Employee
	if err := c.client.Post(ctx, basePath, in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, id int, in Update) (*Employee, error) {
	if in == (Update{}) {
		return nil, ErrEmptyUpdate
	}
	var e Employee
	if err := c.client.Put(ctx, employeePath(id), in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete soft-deletes an employee and returns the backend's message.
func (c *Client) Delete(ctx context.Context, id int) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.client.Delete(ctx, employeePath(id), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Documents lists the documents attached to an employee.
func (c *Client) Documents(ctx context.Context, id int) ([]Document, error) {
	var docs []Document
	if err := c.client.Get(ctx, employeePath(id)+"/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func employeePath(id int) string {
	return basePath + strconv.Itoa(id)
}
