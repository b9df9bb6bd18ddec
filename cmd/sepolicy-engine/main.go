// Command sepolicy-engine is the CLI front end for the SELinux policy
// analysis engine: rule-index construction, domain-transition
// enumeration, and information-flow tracing over a JSON policy fixture.
package main

import "github.com/cici0602/sepolicy-engine/cmd/sepolicy-engine/cmd"

func main() {
	cmd.Execute()
}
