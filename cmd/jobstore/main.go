// Command jobstore manages the jobs and store database: schema migrations,
// seeding, storefront settings and the expiry sweeper.
package main

import "github.com/marshallshelly/jobstore/cmd/jobstore/commands"

func main() {
	commands.Execute()
}
