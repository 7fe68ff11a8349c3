// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authkeep/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	var (
		useBcrypt bool
		verify    string
	)

	cmd := &cobra.Command{
		Use:   "hash-password [PASSWORD]",
		Short: "Hash a password, or check one against a hash",
		Long: `Hash a password with argon2id (or bcrypt with --bcrypt). The password
is read from the first line of stdin when not given as an argument.
With --verify HASH the password is checked instead and the command
fails on a mismatch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, args)
			if err != nil {
				return err
			}

			hasher := auth.NewArgon2idHasher()
			if verify != "" {
				if !hasher.Verify(password, verify) {
					return oops.Code("PASSWORD_MISMATCH").Errorf("password does not match hash")
				}
				cmd.Println("ok")
				return nil
			}

			var hash string
			if useBcrypt {
				hash, err = auth.HashBcrypt(password)
			} else {
				hash, err = hasher.Hash(password)
			}
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useBcrypt, "bcrypt", false, "produce a bcrypt hash")
	cmd.Flags().StringVar(&verify, "verify", "", "check the password against this hash")

	return cmd
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("PASSWORD_MISSING").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("PASSWORD_MISSING").Errorf("no password given")
	}
	return line, nil
}
