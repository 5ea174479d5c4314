package main

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	} else if usr.Roles == nil {
		usr.Roles = user.AttendantRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	isActive := true
	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	}
	return err
}
