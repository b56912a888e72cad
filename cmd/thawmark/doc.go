// Command thawmark is the operator CLI: manifest seeding and inspection,
// claim coordination, CSV export, and unattended first-pass labeling.
package main
