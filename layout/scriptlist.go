package layout

import "github.com/boxesandglue/fontcore/otbin"

// Traversal budgets bound the cost of walking a malicious or pathological
// ScriptList/FeatureList; exceeding one stops the walk early rather than
// failing the whole subset operation.
const (
	maxScripts            = 500
	maxLangSys            = 2000
	maxFeatureIndexEntries = 1500
	maxLookupVisits       = 35000
	maxLangSysFeatureSum  = 5000
)

// LangSys is a decoded LangSys record: an optional required feature index
// (0xFFFF if absent) plus a list of feature indices.
type LangSys struct {
	Tag              otbin.Tag
	RequiredFeature  uint16
	FeatureIndices   []uint16
}

// Script groups a default LangSys with tagged LangSys records.
type Script struct {
	Tag         otbin.Tag
	DefaultLang *LangSys
	Langs       []LangSys
}

// ScriptList is the decoded top-level ScriptList table.
type ScriptList struct {
	Scripts []Script
}

// ParseScriptList reads a ScriptList at off within data, honoring the
// traversal budgets; a budget overrun truncates the list rather than
// failing the parse.
func ParseScriptList(data []byte, off int) (*ScriptList, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return nil, err
	}
	count, err := p.U16()
	if err != nil {
		return nil, err
	}

	sl := &ScriptList{}
	langSysBudget, featIdxBudget, langFeatSumBudget := maxLangSys, maxFeatureIndexEntries, maxLangSysFeatureSum

	n := int(count)
	if n > maxScripts {
		n = maxScripts
	}
	for i := 0; i < n; i++ {
		tag, err := p.ReadTag()
		if err != nil {
			return nil, err
		}
		scriptOff, err := p.U16()
		if err != nil {
			return nil, err
		}
		sc, err := parseScriptTable(data, off+int(scriptOff), tag, &langSysBudget, &featIdxBudget, &langFeatSumBudget)
		if err != nil {
			return nil, err
		}
		sl.Scripts = append(sl.Scripts, sc)
		if langSysBudget <= 0 || featIdxBudget <= 0 || langFeatSumBudget <= 0 {
			break
		}
	}
	return sl, nil
}

func parseScriptTable(data []byte, off int, tag otbin.Tag, langSysBudget, featIdxBudget, langFeatSumBudget *int) (Script, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return Script{}, err
	}
	defaultOff, err := p.U16()
	if err != nil {
		return Script{}, err
	}
	langCount, err := p.U16()
	if err != nil {
		return Script{}, err
	}

	sc := Script{Tag: tag}
	if defaultOff != 0 {
		ls, err := parseLangSys(data, off+int(defaultOff), otbin.MakeTag('d', 'f', 'l', 't'), featIdxBudget, langFeatSumBudget)
		if err != nil {
			return Script{}, err
		}
		sc.DefaultLang = &ls
	}

	for i := 0; i < int(langCount); i++ {
		if *langSysBudget <= 0 || *featIdxBudget <= 0 || *langFeatSumBudget <= 0 {
			break
		}
		*langSysBudget--
		langTag, err := p.ReadTag()
		if err != nil {
			return Script{}, err
		}
		langOff, err := p.U16()
		if err != nil {
			return Script{}, err
		}
		ls, err := parseLangSys(data, off+int(langOff), langTag, featIdxBudget, langFeatSumBudget)
		if err != nil {
			return Script{}, err
		}
		sc.Langs = append(sc.Langs, ls)
	}
	return sc, nil
}

func parseLangSys(data []byte, off int, tag otbin.Tag, featIdxBudget, langFeatSumBudget *int) (LangSys, error) {
	p := otbin.NewParser(data)
	if err := p.SetOffset(off); err != nil {
		return LangSys{}, err
	}
	if _, err := p.U16(); err != nil { // lookupOrder, reserved
		return LangSys{}, err
	}
	required, err := p.U16()
	if err != nil {
		return LangSys{}, err
	}
	featCount, err := p.U16()
	if err != nil {
		return LangSys{}, err
	}
	ls := LangSys{Tag: tag, RequiredFeature: required}
	n := int(featCount)
	if n > *featIdxBudget {
		n = *featIdxBudget
	}
	if n > *langFeatSumBudget {
		n = *langFeatSumBudget
	}
	for i := 0; i < n; i++ {
		idx, err := p.U16()
		if err != nil {
			return LangSys{}, err
		}
		ls.FeatureIndices = append(ls.FeatureIndices, idx)
	}
	*featIdxBudget -= n
	*langFeatSumBudget -= n
	return ls, nil
}
