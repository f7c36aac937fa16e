// Package publish turns a batch of queued requests into written pages.
//
// A batch is processed in fixed steps:
//
//  1. fetch up to the batch cap from the axis queue (attempts are stamped)
//  2. coalesce requests by entity and plan each group through the axis
//     decision table
//  3. remove retired outputs, render each plan once, write the outputs and
//     record them in the page ledger
//  4. enqueue follow-on requests on other axes in one transaction
//  5. mark every fetched request complete
//  6. send announcements and run post-batch hooks
//
// A writer or render failure aborts the batch before step 4, leaving the
// requests pending for the next poll. Hook failures surface as
// hooks.ErrHookFailed once the requests are already complete.
package publish
