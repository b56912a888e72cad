// Package session drives the labeling lifecycle for one labeler: claim a UID
// from the manifest, fetch its tile and history, accumulate point prompts, run
// segmentation, and finalize the result. The controller is an explicit state
// machine that absorbs downstream failures and maps each to a state the
// labeler can continue from.
package session
