package main

import "github.com/goplus/llpkg/cmd/llpkg/internal"

func main() {
	internal.Execute()
}
