// Package sleep decides which small cells under a macro cell can be put to
// sleep while the users of the macro remain served.
//
// Each cycle the Controller snapshots the measurement and channel quality
// reports received since the previous cycle, the Estimator derives the
// spectral efficiency of every (user, cell) link, BuildCoverage computes the
// users each sibling small cell could serve and the Scheduler greedily keeps
// the most loaded cells active until every user is placed or no coverage is
// left. Cells never selected form the sleep set. All cycle state is dropped
// once the policy has been published.
package sleep
