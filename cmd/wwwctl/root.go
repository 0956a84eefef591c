// Copyright (C) 2025 SAGE-X Project
//
// This file is part of sage-www-go.
//
// sage-www-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sage-www-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sage-www-go.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"github.com/spf13/cobra"

	sagewww "github.com/sage-x-project/sage-www-go"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wwwctl",
		Short: "Client tool for www-v1 signed APIs",
		Long: `wwwctl talks to APIs protected by www-v1 request signatures.

  call     send a signed request and print the result
  sign     print the canonical payload and signature of a field set
  verify   check a signature against a field set
  clock    compare the local clock with an NTP server`,
		Version:       sagewww.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCallCmd())
	root.AddCommand(newSignCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newClockCmd())
	return root
}
