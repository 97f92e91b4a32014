// Package tracking keeps the per-org source tracking state of a project.
//
// Two JSON files live under the project's .sourcesync/orgs/<orgId> directory:
//
//   - localSourceTracking.json records the content hash of every project file
//     as of the last sync, so local adds, edits and deletes can be detected.
//   - maxRevision.json records, per remote component, the org's revision
//     counter and the counter last retrieved into the project.
//
// A Tracker loads both files once, refreshes the remote side from the org,
// stages changes in memory while a pull runs and writes everything back in a
// single finalization step.
package tracking
