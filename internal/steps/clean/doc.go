package clean

// Package clean documents the IO contract for the first publish step.
//
// Inputs: the configured clean targets (`clean.targets`) and glob patterns
// (`clean.patterns`) from packline.yaml, resolved against the project
// directory.
//
// Effects: every resolved path is removed recursively. A target that does
// not exist is skipped silently; the step only fails when a deletion itself
// fails or a target would escape the project directory.
