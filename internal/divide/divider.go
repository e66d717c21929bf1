package divide

import "fmt"

// Params are the target partitioning parameters of §4.4.
type Params struct {
	Divisions int
	Blocksize int64
	Threads   int
}

// Plan partitions the scanner's three aligned PositionLists into Divisions
// of approximately equal encoded-byte weight, implementing the five-step
// algorithm of §4.4. It returns the resulting divisions and the (possibly
// reduced) thread count to use, since a partition with fewer spectra than
// requested threads must shrink the pool (§4.4 step 5).
func Plan(xml, mzList, intenList PositionList, p Params) ([]Division, int, error) {
	totalSpec := mzList.Len()
	if intenList.Len() != totalSpec {
		return nil, 0, fmt.Errorf("divide: mz/inten span count mismatch: %d != %d", totalSpec, intenList.Len())
	}
	if xml.Len() != 2*totalSpec+1 {
		return nil, 0, fmt.Errorf("divide: xml span count %d, want %d", xml.Len(), 2*totalSpec+1)
	}

	fileEnd := xml.FileEnd
	divisions := p.Divisions
	blocksize := p.Blocksize
	threads := p.Threads
	if threads <= 0 {
		threads = 1
	}

	// Step 1: derive division count from blocksize if not set.
	if divisions == 0 {
		if blocksize <= 0 {
			blocksize = fileEnd
		}
		divisions = int((fileEnd + blocksize - 1) / blocksize)
		if divisions < 1 {
			divisions = 1
		}
	}

	// Step 2: ensure there are at least as many divisions as threads.
	if divisions < threads {
		divisions = threads
		if threads > 0 {
			blocksize = fileEnd / int64(threads)
		}
	}
	if blocksize <= 0 {
		blocksize = fileEnd
	}

	if totalSpec == 0 {
		return []Division{emptyDivision(xml, mzList, intenList)}, 1, nil
	}

	// Step 3: walk spectra in index order, closing a division once its
	// running weight exceeds blocksize.
	var result []Division
	specStart := 0
	var weight int64
	for i := 0; i < totalSpec; i++ {
		specWeight := (mzList.End[i] - mzList.Start[i]) + (intenList.End[i] - intenList.Start[i])
		weight += specWeight
		closeHere := weight > blocksize && len(result) < divisions-1
		if closeHere {
			result = append(result, buildDivision(xml, mzList, intenList, specStart, i+1))
			specStart = i + 1
			weight = 0
		}
	}
	// Step 4: whatever remains goes into the final division.
	if specStart < totalSpec {
		result = append(result, buildDivision(xml, mzList, intenList, specStart, totalSpec))
	}

	// Step 5: if partitioning produced fewer divisions than requested
	// threads (small input), shrink the thread pool to match.
	if len(result) < threads {
		threads = len(result)
	}
	if threads < 1 {
		threads = 1
	}

	for i := range result {
		if err := result[i].Validate(); err != nil {
			return nil, 0, fmt.Errorf("divide: division %d: %w", i, err)
		}
	}

	return result, threads, nil
}

func buildDivision(xml, mz, inten PositionList, specLo, specHi int) Division {
	xmlLo, xmlHi := 2*specLo, 2*specHi+1
	d := Division{
		XML:   xml.Slice(xmlLo, xmlHi),
		Mz:    mz.Slice(specLo, specHi),
		Inten: inten.Slice(specLo, specHi),
	}
	d.Weight = d.Mz.Weight() + d.Inten.Weight()
	return d
}

func emptyDivision(xml, mz, inten PositionList) Division {
	return Division{
		XML:   xml,
		Mz:    mz,
		Inten: inten,
	}
}
