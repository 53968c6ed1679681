package main

import (
	"fmt"
	"os"

	"github.com/salmenktata/quelyosSuite-sub025/cmd/convert"
	"github.com/salmenktata/quelyosSuite-sub025/cmd/root"
	"github.com/salmenktata/quelyosSuite-sub025/cmd/serve"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(serve.Cmd)
	root.Cmd.AddCommand(convert.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
