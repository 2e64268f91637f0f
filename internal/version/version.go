// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Star map export, coordinate grids, stale response guard on planet switch
// 0.2.0 - Constellation authoring and hover highlighting
// 0.1.0 - Initial release: exoplanet list, projected star field, star picking
