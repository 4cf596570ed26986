// Command coordinator is a minimal operator CLI and smoke-test harness
// for the session coordinator core.
package main

import "os"

func main() {
	os.Exit(Execute())
}
