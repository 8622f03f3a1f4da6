/*
Package dyndns keeps a Cloudflare DNS record pointed at the public IP
assigned by an ISP, for networks where that IP is only visible through
the router's administrative web console.

Usage will always start with [dyndns.New],
which returns a Client that runs one observe-and-synchronize pass.
New requires the zone, record ID, and record name to manage,
plus an [Observer] implementation for where the IP comes from -
usually [UsingRouter], which drives a headless browser through the
router console.
Additional client configuration options are listed in the docs for New.

[RouterObserver] is usable on its own for callers that only want the
observed address.
*/
package dyndns
