// Package vestingengine holds token vesting accounts and pays out beneficiary
// entitlements.
//
// A vesting account is funded once, released once by its initializer, and
// from then on each beneficiary may claim whatever their schedule has
// unlocked. The schedule generator and claim reconciler live in domain and
// are pure; everything that touches storage, custody or the network goes
// through ports.
package vestingengine
