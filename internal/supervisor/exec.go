package supervisor

import (
	"os"
	"os/exec"
	"strconv"
)

// WorkerEnv marks a process as a pool worker; its value is the slot number.
const WorkerEnv = "FEEDBACKHUB_WORKER"

// IsWorker reports whether this process was started by a Supervisor.
func IsWorker() bool {
	return os.Getenv(WorkerEnv) != ""
}

// ExecSpawner re-executes the current binary with WorkerEnv set.
type ExecSpawner struct {
	Path string
	Args []string
}

func NewExecSpawner() (*ExecSpawner, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return &ExecSpawner{Path: path, Args: os.Args[1:]}, nil
}

func (s *ExecSpawner) Spawn(slot int) (Process, error) {
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Env = append(os.Environ(), WorkerEnv+"="+strconv.Itoa(slot))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}
