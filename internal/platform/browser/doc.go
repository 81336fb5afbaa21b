// Package browser provides the window system backend on top of a
// Chromium instance driven by Playwright. Every child is a page in its
// own browser window; window geometry goes through the Chrome DevTools
// Protocol Browser domain. The controller surface is a dedicated page that
// hosts the toolbar and reports its own screen geometry.
package browser
