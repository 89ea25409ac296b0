package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	slices2 "tideland.dev/go/slices"

	"github.com/doorman-auth/doorman/storage"
	"github.com/doorman-auth/doorman/storage/model"
)

func newUsersCmd(c *cliContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered users",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if c.users != nil {
				return nil
			}
			return c.load()
		},
	}

	var unique bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the usernames of all registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listUsers(cmd.OutOrStdout(), c.users, unique)
		},
	}
	listCmd.Flags().BoolVar(&unique, "unique", false, "print every username only once")

	var password string
	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptPassword(cmd, true)
				if err != nil {
					return err
				}
			}
			return addUser(cmd.OutOrStdout(), c, args[0], password)
		},
	}
	addCmd.Flags().StringVarP(&password, "password", "p", "", "the password; prompted for if not given")

	checkCmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Check a password of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptPassword(cmd, false)
				if err != nil {
					return err
				}
			}
			return checkUser(cmd.OutOrStdout(), c, args[0], password)
		},
	}
	checkCmd.Flags().StringVarP(&password, "password", "p", "", "the password; prompted for if not given")

	usersCmd.AddCommand(listCmd, addCmd, checkCmd)
	return usersCmd
}

func listUsers(out io.Writer, users model.UsersStore, unique bool) error {
	names, err := storage.Usernames(users)
	if err != nil {
		return err
	}
	if unique {
		names = slices2.Unique(names)
	}
	for _, n := range names {
		if _, err = fmt.Fprintln(out, n); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func addUser(out io.Writer, c *cliContext, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password must not be empty")
	}
	hash, err := c.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err = c.users.InsertIfAbsent(
		model.UserRecord{
			Username:       username,
			HashedPassword: hash,
		},
	); err != nil {
		return err
	}
	log.WithField("username", username).Info("registered user")
	_, err = fmt.Fprintf(out, "added user '%s'\n", username)
	return errors.WithStack(err)
}

func checkUser(out io.Writer, c *cliContext, username, password string) error {
	user, err := c.users.FindByUsername(username)
	if err != nil {
		return err
	}
	if !c.hasher.Verify(password, user.HashedPassword) {
		return errors.Errorf("invalid password for user '%s'", username)
	}
	_, err = fmt.Fprintln(out, "password is valid")
	return errors.WithStack(err)
}

// promptPassword reads a password without echo from the terminal. If stdin
// is not a terminal a single line is read from it.
func promptPassword(cmd *cobra.Command, confirm bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", errors.WithStack(err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	read := func(prompt string) (string, error) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)
		p, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		return string(p), errors.WithStack(err)
	}
	password, err := read("Password: ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return password, nil
	}
	again, err := read("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != again {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
