package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/user"
)

var userRoles = map[string]string{
	"student": user.RoleStudent,
	"teacher": user.RoleTeacher,
	"proctor": user.RoleProctor,
	"admin":   user.RoleAdmin,
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, uname, email, role string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := cli.addUser(cmd, name, uname, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "the user's full name")
	cmd.Flags().StringVar(&uname, "username", "", "the user's username")
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&role, "role", "student", "one of student, teacher, proctor, admin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// addUser creates an active user.User with the given role.
func (cli *commandLine) addUser(cmd *cobra.Command, name, uname, email, role string) (user.User, error) {
	r, ok := userRoles[strings.ToLower(role)]
	if !ok {
		return user.User{}, core.NewFieldValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	stores, err := cli.store(cmd.Context())
	if err != nil {
		return user.User{}, err
	}

	active := true
	now := time.Now().UTC()
	uname = core.CleanString(uname, true /* lower */)
	if name = core.CleanString(name); name == "" {
		name = uname
	}
	return stores.Users.CreateUser(cmd.Context(), user.User{
		Name:      name,
		Username:  uname,
		Email:     core.CleanString(email, true /* lower */),
		IsActive:  &active,
		Roles:     []string{r},
		CreatedAt: now,
		UpdatedAt: now,
	})
}
