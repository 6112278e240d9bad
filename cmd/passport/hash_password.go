package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/passport/password"
)

type hashedPassword struct {
	Algorithm    string `yaml:"algorithm"`
	Salt         string `yaml:"salt"`
	PasswordHash string `yaml:"password_hash"`
}

func newHashPasswordCmd(opts *rootOptions) *cobra.Command {
	var (
		algorithm string
		salt      string
	)

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Hash a password for a principals entry or the t_user table",
		Long:  "Hash a password with the configured scheme. Without an argument the password is read from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := readPassword(cmd, args)
			if err != nil {
				return err
			}
			if algorithm == "" {
				algorithm = opts.cfg.Password.Algorithm
			}

			engineCfg := opts.cfg.Engine()
			hasher, err := password.New(algorithm, password.Config{
				Memory:      engineCfg.Password.Memory,
				Time:        engineCfg.Password.Time,
				Parallelism: engineCfg.Password.Parallelism,
				KeyLength:   engineCfg.Password.KeyLength,
			})
			if err != nil {
				return err
			}
			if salt == "" {
				if salt, err = password.NewSalt(0); err != nil {
					return fmt.Errorf("generate salt: %w", err)
				}
			}

			hash, err := hasher.Hash(salt, plain)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(hashedPassword{Algorithm: hasher.Algorithm(), Salt: salt, PasswordHash: hash})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Hash scheme (argon2id, sha256); defaults to the config value")
	cmd.Flags().StringVar(&salt, "salt", "", "Salt to use; a random one is generated when empty")
	return cmd
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
