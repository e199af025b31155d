package coordinator

import "nlsqld/executor"

// Response is the Coordinator's result for a single request, shaped by the
// httpapi layer into the external JSON contract (§6).
type Response struct {
	OK     bool
	Answer string
	SQL    string
	Rows   []executor.Row
}
