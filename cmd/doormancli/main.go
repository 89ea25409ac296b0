package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/doorman-auth/doorman/cmd/doorman/config"
	"github.com/doorman-auth/doorman/credentials"
	"github.com/doorman-auth/doorman/storage/model"
)

// cliContext holds what the subcommands need once the config is loaded
type cliContext struct {
	configFile string
	users      model.UsersStore
	hasher     credentials.Hasher
}

func (c *cliContext) load() error {
	if err := config.Load(c.configFile); err != nil {
		return err
	}
	log.Debug("Loaded Config")
	conf := config.Get()

	var err error
	c.hasher, err = credentials.New(conf.Hashing)
	if err != nil {
		return err
	}
	c.users, err = config.LoadUsersStore(conf.Storage)
	return err
}

func (c *cliContext) close() {
	if c.users == nil {
		return
	}
	if err := c.users.Close(); err != nil {
		log.WithError(err).Error("could not close users store")
	}
}

func newRootCmd(c *cliContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "doormancli",
		Short:        "doormancli can help you manage your doorman users",
		Long:         "doormancli can help you manage your doorman users",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "the config file to use")
	rootCmd.AddCommand(newUsersCmd(c), newVersionCmd())
	return rootCmd
}

func main() {
	log.SetOutput(os.Stderr)
	c := &cliContext{}
	defer c.close()
	if err := newRootCmd(c).Execute(); err != nil {
		c.close()
		os.Exit(1)
	}
}
