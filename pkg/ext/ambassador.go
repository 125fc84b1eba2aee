package ext

import (
	"os"
	"os/exec"
	"time"
)

var (
	DefaultAmbassador = &ambassador{}
)

// Ambassador the ambassador to the outside "world". Wraps methods that modify global state and hence make the code that
// use them very hard to test.
type Ambassador interface {
	Environ() []string
	LookPath(string) (string, error)
	RunCmd(cmd *exec.Cmd) ([]byte, error)
	Sleep(d time.Duration)
}

type ambassador struct {
}

func (a *ambassador) Environ() []string {
	return os.Environ()
}

// RunCmd runs the given command and returns its standard output. On a
// non-zero exit the standard error is available via exec.ExitError.Stderr.
func (a *ambassador) RunCmd(cmd *exec.Cmd) ([]byte, error) {
	return cmd.Output()
}

func (a *ambassador) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (a *ambassador) Sleep(d time.Duration) {
	time.Sleep(d)
}
