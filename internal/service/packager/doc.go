// Package packager runs the packaging workflows behind the ext-packager commands.
//
// A Session loads the settings, opens the project named on the command line (or the one
// used last) and exposes one method per workflow: importing artifacts, editing the catalog,
// managing keys and signatures, configuring targets and publishing. Human-readable summaries
// are written to the session's output.
package packager
