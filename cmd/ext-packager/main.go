package main

import "github.com/oshokin/ext-packager/cmd/ext-packager/cmd"

func main() {
	cmd.Execute()
}
