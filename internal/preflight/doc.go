// Package preflight provides readiness checks for the directories, database,
// storage backend and player binary the jukebox depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before starting the play loop and refuses to
//     start when a required check fails.
//   - The CLI "jukebox status" command prints every Result so operators can
//     see what is misconfigured.
//
// Checks that do not apply to the configured storage backend are skipped.
package preflight
