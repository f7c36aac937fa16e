// Package daemon drives one axis publisher through its lifecycle.
//
// A Controller either drains the queue once and returns, or loops forever:
// run batches while work exists, and when the queue is empty reset repository
// caches, sleep the axis interval, confirm the PID lock still belongs to this
// process, and confirm the deployed build has not changed. Writer failures
// back off and retry. Lock integrity, hook, redeploy, and store errors end the
// loop and are returned to the caller.
package daemon
