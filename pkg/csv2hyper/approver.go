package csv2hyper

import "context"

// Approver handles user interaction before destructive operations,
// currently replacing an extract file that already exists.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the file name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before replacing the file at path.
	RequestApproval(ctx context.Context, path string) (bool, error)
}
