// Package custody is the read and calldata layer for the on-chain custody
// contract: session record lookups, activity checks, and packed call data for
// openSession, closeSession and depositETH. Submission is not done here; the
// packed calldata goes through the wallet adapter so an interactive wallet can
// refuse it.
package custody
