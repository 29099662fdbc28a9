// Package chart renders trend series sets as PNG line charts.
//
// The renderer keeps the familiar approval-chart presentation: individual
// pollster series draw as faint dashed lines underneath, the raw daily
// average as a medium solid line, and the exponentially smoothed trend as a
// thick solid line on top. The y-axis is a padded percentage window so lines
// at 0 or 100 never sit on the plot border, and the x-axis formats dates as
// YYYY-MM-DD.
//
// Rendering an empty series set produces a blank placeholder image instead
// of an error, keeping <img> consumers working when a session has every
// pollster deselected.
package chart
