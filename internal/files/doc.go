// Package files locates the roster, caseload and ratings exports in a
// directory and reads them into loader sources.
//
// Roles are guessed from file names:
//
//	roster    roster, staff, officers
//	caseload  caseload, statistics, stats
//	ratings   rating, survey, feedback
//
// The keyword appearing earliest in the name decides, and among files with
// the same role the newest wins. Office lock files (~$...) are ignored.
package files
