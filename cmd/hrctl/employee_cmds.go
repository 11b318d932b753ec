package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/hrclient/employees"
)

func newEmployeesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"emp"},
		Short:   "Manage employee profiles",
	}
	cmd.AddCommand(
		newEmployeesListCmd(v),
		newEmployeesGetCmd(v),
		newEmployeesCreateCmd(v),
		newEmployeesUpdateCmd(v),
		newEmployeesDeleteCmd(v),
		newEmployeesDocumentsCmd(v),
	)
	return cmd
}

func newEmployeesListCmd(v *viper.Viper) *cobra.Command {
	var p employees.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		Args:  cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			page, err := employees.New(s.client).List(ctx, p)
			if err != nil {
				return err
			}
			return s.print(page)
		}),
	}
	cmd.Flags().IntVar(&p.Skip, "skip", 0, "Number of records to skip")
	cmd.Flags().IntVar(&p.Limit, "limit", employees.DefaultLimit, "Page size (max 100)")
	cmd.Flags().StringVar(&p.Search, "search", "", "Match name, employee ID or email")
	cmd.Flags().StringVar(&p.Department, "department", "", "Filter by department")
	cmd.Flags().StringVar(&p.Status, "status", "", "Filter by employee status")
	return cmd
}

func newEmployeesGetCmd(v *viper.Viper) *cobra.Command {
	var byUser bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one employee",
		Args:  cobra.ExactArgs(1),
		RunE: run(v, func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c := employees.New(s.client)
			if byUser {
				e, err := c.GetByUser(ctx, id)
				if err != nil {
					return err
				}
				return s.print(e)
			}
			d, err := c.Get(ctx, id)
			if err != nil {
				return err
			}
			return s.print(d)
		}),
	}
	cmd.Flags().BoolVar(&byUser, "user", false, "Treat <id> as a user ID")
	return cmd
}

func newEmployeesCreateCmd(v *viper.Viper) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee from a JSON document",
		Long:  "Create an employee profile. The JSON document is read from --file, or stdin when --file is -.",
		Args:  cobra.NoArgs,
		RunE: run(v, func(ctx context.Context, s *session, _ []string) error {
			var in employees.Create
			if err := readJSON(file, s, &in); err != nil {
				return err
			}
			e, err := employees.New(s.client).Create(ctx, in)
			if err != nil {
				return err
			}
			return s.print(e)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with the employee profile")
	return cmd
}

func newEmployeesUpdateCmd(v *viper.Viper) *cobra.Command {
	fields := map[string]*string{}
	names := []string{
		"first-name", "last-name", "phone-number", "department", "position",
		"employee-status", "address-line1", "address-line2", "city", "state",
		"country", "postal-code", "bio", "skills",
	}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of an employee",
		Args:  cobra.ExactArgs(1),
		RunE: run(v, func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in := employees.Update{}
			set := func(name string, dst **string) {
				if f := s.cmd.Flags().Lookup(name); f != nil && f.Changed {
					*dst = fields[name]
				}
			}
			set("first-name", &in.FirstName)
			set("last-name", &in.LastName)
			set("phone-number", &in.PhoneNumber)
			set("department", &in.Department)
			set("position", &in.Position)
			set("employee-status", &in.EmployeeStatus)
			set("address-line1", &in.AddressLine1)
			set("address-line2", &in.AddressLine2)
			set("city", &in.City)
			set("state", &in.State)
			set("country", &in.Country)
			set("postal-code", &in.PostalCode)
			set("bio", &in.Bio)
			set("skills", &in.Skills)

			e, err := employees.New(s.client).Update(ctx, id, in)
			if err != nil {
				return err
			}
			return s.print(e)
		}),
	}
	for _, name := range names {
		fields[name] = cmd.Flags().String(name, "", "New "+name)
	}
	return cmd
}

func newEmployeesDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Deactivate an employee",
		Args:  cobra.ExactArgs(1),
		RunE: run(v, func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			msg, err := employees.New(s.client).Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, msg)
			return nil
		}),
	}
}

func newEmployeesDocumentsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "documents <id>",
		Short: "List an employee's documents",
		Args:  cobra.ExactArgs(1),
		RunE: run(v, func(ctx context.Context, s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			docs, err := employees.New(s.client).Documents(ctx, id)
			if err != nil {
				return err
			}
			return s.print(docs)
		}),
	}
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func readJSON(path string, s *session, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(s.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}
