// Package preflight provides readiness checks for the backend API and the
// local paths plenum writes to.
//
// The CLI "plenum doctor" command runs RunAll and renders the results;
// individual check functions back targeted status output elsewhere.
package preflight
