// Package crawlfront lets a crawl engine hand URL scheduling decisions to an
// external crawl frontier. It converts the engine's requests and responses
// to and from the frontier's representation, decides which discovered links
// go to the frontier and which stay in the local queue, and throttles
// frontier draw-down by destination slot load.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, bloom/, goquery/).
package crawlfront
