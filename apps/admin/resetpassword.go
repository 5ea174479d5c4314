package main

import (
	"time"

	"github.com/tmdiniz/atende/core"
	"github.com/tmdiniz/atende/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	update := user.User{
		ID:           usr.ID,
		PasswordHash: usr.PasswordHash,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err = cli.usrRepo.UpdateUser(update, nil)
	return err
}
