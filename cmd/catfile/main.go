// Command catfile is a thin CLI over the store façade. It mirrors git's
// `cat-file -p|-t <id>` surface closely enough to drive the store against
// a real repository's object database.
package main

import (
	"fmt"
	"os"

	"github.com/scm-tools/gitodb/plumbing"
	"github.com/scm-tools/gitodb/store"
)

const usage = `usage: catfile -p|-t <id>
	-p <id>  print the canonical rendering of the object named by id
	-t <id>  print the object's type label

<id> accepts any hex prefix of length >= 4; GIT_DIR overrides the default
repository location of "." (a ".git" subdirectory is tried first, then the
directory itself, for bare repositories).
`

const (
	generalErrorExitCode = 1
	usageErrorExitCode   = 2
)

var commands = map[string]func(s *store.Store, id string) error{
	"-p": runPrint,
	"-t": runType,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprint(os.Stderr, usage)
		return usageErrorExitCode
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return usageErrorExitCode
	}

	s := store.Open(gitDir(), store.WithDiagnostics(os.Stderr), store.WithIndexCache(0))
	defer s.Close()

	if err := cmd(s, args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "catfile:", err)
		return generalErrorExitCode
	}
	return 0
}

// gitDir resolves the repository root the same way the reference tool's
// plumbing commands do: GIT_DIR if set, otherwise ".git" under the working
// directory, falling back to "." for a bare repository.
func gitDir() string {
	if d := os.Getenv("GIT_DIR"); d != "" {
		return d
	}
	if info, err := os.Stat(".git"); err == nil && info.IsDir() {
		return ".git"
	}
	return "."
}

func resolve(s *store.Store, idStr string) (plumbing.ObjectID, error) {
	if len(idStr) == plumbing.Size*2 {
		if id, err := plumbing.FromHex(idStr); err == nil {
			return id, nil
		}
	}
	return s.Resolve(idStr)
}

func runPrint(s *store.Store, idStr string) error {
	id, err := resolve(s, idStr)
	if err != nil {
		return err
	}
	return s.Render(os.Stdout, id)
}

func runType(s *store.Store, idStr string) error {
	id, err := resolve(s, idStr)
	if err != nil {
		return err
	}
	typ, err := s.Kind(id)
	if err != nil {
		return err
	}
	fmt.Println(typ)
	return nil
}
