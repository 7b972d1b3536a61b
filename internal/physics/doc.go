// Package physics provides the closed-form models behind each experiment.
//
//   - [Bounce]: bounce count and flight time of a ball losing height per bounce
//   - [DecayChain]: daughter activity of a parent -> daughter decay chain
//   - [Barrier]: electron transmission through a thin barrier
//
// [DecayChain] and [Barrier] implement [fit.Model]. All models expose
// GetParams/SetParam so their physical constants can be overridden from
// configuration:
//
//	chain := physics.NewDecayChain()
//	_ = chain.SetParam("n0", 2e-6*physics.Avogadro)
package physics
