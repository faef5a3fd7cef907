// msv is a terminal viewer for mobile network simulations.
//
// It polls the simulation backend for round snapshots and draws nodes,
// links and message logs in real time. Subcommands drive the simulator and
// run graph queries against the current round.
//
// Usage:
//
//	msv                           # Open the live viewer
//	msv --base-url <url>          # Poll a specific backend
//	msv --rate 10                 # Poll at 10 Hz
//	msv snapshot --json           # Dump the current round as JSON and exit
//	msv init sample1              # Load a project
//	msv run --rounds 500          # Start the simulation
//	msv query path 1 7            # Shortest path between two nodes
//	msv submit --form add-nodes number_of_nodes=5
//	msv demo --addr :8000         # Serve the built-in demo backend
//	msv version                   # Print version and exit
package main

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

func main() {
	Execute()
}
