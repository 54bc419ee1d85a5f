package extract

import "context"

// StaticInvoker returns a canned response and records the prompts it
// was called with. It backs both this package's tests and the server
// integration tests; no real client is required.
type StaticInvoker struct {
	Response []byte
	Err      error

	Calls      int
	LastModel  string
	LastSystem string
	LastUser   string
}

func (s *StaticInvoker) Generate(ctx context.Context, model, system, user string) ([]byte, error) {
	s.Calls++
	s.LastModel = model
	s.LastSystem = system
	s.LastUser = user
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Response, nil
}
