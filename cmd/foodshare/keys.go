package main

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/urfave/cli/v2"
)

var keysCommand = &cli.Command{
	Name:  "keys",
	Usage: "Generate cookie keys for COOKIE_HASH_KEY and COOKIE_BLOCK_KEY",
	Action: func(c *cli.Context) error {
		fmt.Printf("COOKIE_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(64)))
		fmt.Printf("COOKIE_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)))
		return nil
	},
}
