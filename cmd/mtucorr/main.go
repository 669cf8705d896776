package main

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"github.com/DCSO/mtucorr/cmd/mtucorr/cmds"
)

func main() {
	cmd.Execute()
}
