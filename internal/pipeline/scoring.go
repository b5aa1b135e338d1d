package pipeline

import (
	"path"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/DeusData/codegraph-ingest/internal/config"
)

var canonicalUtilityNames = map[string]bool{
	"utils": true, "util": true, "helpers": true, "helper": true,
	"common": true, "shared": true, "core": true, "lib": true,
}

var legacySegments = map[string]bool{
	"legacy": true, "deprecated": true, "old": true,
	"archive": true, "backup": true, "obsolete": true,
}

// nameSimilarity is 1 - normalized Levenshtein distance, so identical
// names score 1.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	s, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(s)
}

func dirSegments(dir string) []string {
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// ProximityScore ranks how related candidate is to caller. Higher is
// closer. Both arguments are root-relative file paths.
func ProximityScore(caller, candidate string, w config.ScoringWeights) float64 {
	callerDir, candDir := path.Dir(caller), path.Dir(candidate)
	callerSegs, candSegs := dirSegments(callerDir), dirSegments(candDir)

	score := 0.0
	switch {
	case callerDir == candDir:
		score += w.SameDirectoryBonus
	case path.Dir(callerDir) == path.Dir(candDir):
		score += w.SiblingDirectoryBonus
	}

	shared := 0
	for shared < len(callerSegs) && shared < len(candSegs) && callerSegs[shared] == candSegs[shared] {
		shared++
	}
	score += w.SharedPrefixWeight * float64(shared)

	callerBase := strings.TrimSuffix(path.Base(caller), path.Ext(caller))
	candBase := strings.TrimSuffix(path.Base(candidate), path.Ext(candidate))
	score += w.NameSimilarityWeight * nameSimilarity(callerBase, candBase)
	score += w.NameSimilarityWeight * nameSimilarity(path.Base(callerDir), path.Base(candDir))

	if canonicalUtilityNames[strings.ToLower(candBase)] {
		score += w.CanonicalUtilityBonus
	}

	score += w.ShortPathWeight / float64(1+len(candidate))

	if extra := len(candSegs) - w.DepthFree; extra > 0 {
		score -= w.DepthPenalty * float64(extra)
	}
	if isTestPath(candidate) && !isTestPath(caller) {
		score -= w.TestFilePenalty
	}
	for _, s := range candSegs {
		if legacySegments[strings.ToLower(s)] {
			score -= w.LegacyPenalty
			break
		}
	}
	return score
}

// bestCandidate returns the highest scoring symbol. Ties keep the earlier
// candidate, so callers control tie-breaking through ordering.
func bestCandidate(caller string, cands []*Symbol, w config.ScoringWeights) *Symbol {
	var best *Symbol
	bestScore := 0.0
	for _, c := range cands {
		s := ProximityScore(caller, c.FilePath, w)
		if best == nil || s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// topDir returns the first directory segment of p, or "" at the root.
func topDir(p string) string {
	segs := dirSegments(path.Dir(p))
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// twoLevelPrefix returns the first two directory segments of p.
func twoLevelPrefix(p string) string {
	segs := dirSegments(path.Dir(p))
	if len(segs) > 2 {
		segs = segs[:2]
	}
	return strings.Join(segs, "/")
}

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, "_") && !(strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"))
}

func hasSegment(p, seg string) bool {
	for _, s := range strings.Split(p, "/") {
		if s == seg || strings.TrimSuffix(s, path.Ext(s)) == seg {
			return true
		}
	}
	return false
}

// globalCandidates filters same-named callables outside the caller's file
// and applies the framework convention reorder.
func (p *Pipeline) globalCandidates(callerFile, name string, all []*Symbol) []*Symbol {
	shared := make(map[string]bool)
	for _, d := range p.cfg.EffectiveSharedDirectories() {
		shared[d] = true
	}
	callerTop := topDir(callerFile)
	callerPrefix := twoLevelPrefix(callerFile)

	var out []*Symbol
	for _, c := range all {
		if c.FilePath == callerFile {
			continue
		}
		if callerTop != "" {
			if top := topDir(c.FilePath); top != "" && top != callerTop && !shared[top] {
				continue
			}
		}
		if isPrivateName(name) && twoLevelPrefix(c.FilePath) != callerPrefix {
			continue
		}
		out = append(out, c)
	}
	return p.conventionOrder(callerFile, out)
}

// conventionOrder moves candidates that match a framework convention for
// the caller's location to the front, keeping relative order otherwise.
func (p *Pipeline) conventionOrder(callerFile string, cands []*Symbol) []*Symbol {
	if len(cands) < 2 {
		return cands
	}
	var prefer []string
	for _, c := range p.cfg.EffectiveConventions() {
		if hasSegment(callerFile, c.From) {
			prefer = append(prefer, c.To)
		}
	}
	if len(prefer) == 0 {
		return cands
	}
	out := make([]*Symbol, 0, len(cands))
	taken := make([]bool, len(cands))
	for _, to := range prefer {
		for i, c := range cands {
			if !taken[i] && hasSegment(c.FilePath, to) {
				out = append(out, c)
				taken[i] = true
			}
		}
	}
	for i, c := range cands {
		if !taken[i] {
			out = append(out, c)
		}
	}
	return out
}
