/*
Package bayes provides a discrete Bayesian network with approximate inference
by Gibbs sampling.

A Network is loaded from a JSON (or YAML) definition listing the variables and,
for each of them, its parents and conditional probability table. Loading
validates every table and rejects cyclic graphs; a failed load leaves the
network empty. Once loaded, the network answers Markov blanket queries and
estimates posterior distributions of query variables given evidence with MCMC.

	net := bayes.NewNetwork(bayes.WithSeed(42))
	if err := net.LoadFile("alarm.json"); err != nil {
		return err
	}
	estimate, err := net.MCMC(ctx, bayes.Evidence{"burglary": "T"}, []string{"John_calls"}, 1000)

A Network is not safe for concurrent use.
*/
package bayes
