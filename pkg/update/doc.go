// Package update checks a release provider for newer builds and replaces the
// running executable with a verified download.
//
// A Pipeline runs four stages in order: Check, Download, Verify and Apply.
// Each stage is a hard gate. A failure aborts the run with a *StageError and
// removes any file the run created. Apply hands the verified file to an
// Installer that finishes the swap after this process exits, so a successful
// run ends with a call to the pipeline's Exit hook.
package update
