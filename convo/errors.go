package convo

import "errors"

// ErrTurnAborted is returned by RunTurn when the loop exhausts its round
// budget without the model producing a plain answer.
var ErrTurnAborted = errors.New("turn aborted: round budget exhausted")
