package segment

import "strings"

// stopwords are ignored when building lexical-cohesion vectors. Entries are
// stored in normalised form (lower case, letters only).
var stopwords = func() map[string]bool {
	const list = `
a about above after again against ain all am an and any are aren arent as at
be because been before being below between both but by
can couldn couldnt
d did didn didnt do does doesn doesnt doing don dont down during
each few for from further
had hadn hadnt has hasn hasnt have haven havent having he her here hers herself him himself his how
i if in into is isn isnt it its itself
just ll m ma me mightn mightnt more most mustn mustnt my myself
needn neednt no nor not now o of off on once only or other our ours ourselves out over own
re s same shan shant she shes should shouldve shouldn shouldnt so some such
t than that thatll the their theirs them themselves then there these they this those through to too
under until up ve very
was wasn wasnt we were weren werent what when where which while who whom why will with won wont wouldn wouldnt
y you youd youll youre youve your yours yourself yourselves
`
	out := map[string]bool{}
	for _, w := range strings.Fields(list) {
		out[w] = true
	}
	return out
}()
