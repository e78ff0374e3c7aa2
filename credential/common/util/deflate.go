package util

// Deflate encoder matching zlib's output at its default level. The
// serialized revocation bitmap pins its compressed bytes, and
// compress/flate frames the same input into a different stream, so the
// deflate body is produced here with zlib's exact algorithm: lazy
// matching over hash chains, blocks of at most 16383 symbols, and the
// stored/static/dynamic block choice by bit cost.

import "hash/adler32"

const (
	minMatch = 3
	maxMatch = 258

	windowSize   = 32768
	windowMask   = windowSize - 1
	hashMask     = 32767
	hashShift    = 5
	minLookahead = maxMatch + minMatch + 1
	maxDist      = windowSize - minLookahead
	tooFar       = 4096

	numLiterals = 256
	lengthCodes = 29
	litCodes    = numLiterals + 1 + lengthCodes
	distCodes   = 30
	codeLenCode = 19
	heapCap     = 2*litCodes + 1
	maxCodeBits = 15
	maxBLBits   = 7
	endBlock    = 256
	rep36       = 16
	repz310     = 17
	repz11138   = 18
	symLimit    = 16383

	goodMatch = 8
	maxLazy   = 16
	niceMatch = 128
	maxChain  = 128
)

var (
	extraLengthBits = [lengthCodes]int{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	extraDistBits = [distCodes]int{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
	extraCodeLenBits = [codeLenCode]int{
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 3, 7,
	}
	codeLenOrder = [codeLenCode]int{
		16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
	}

	baseLength   [lengthCodes]int
	lengthSymbol [256]int
	baseDist     [distCodes]int
	distSymbol   [512]int

	staticLitLen   [litCodes + 2]int
	staticLitCode  [litCodes + 2]int
	staticDistLen  [distCodes]int
	staticDistCode [distCodes]int
)

func init() {
	length := 0
	for code := 0; code < lengthCodes-1; code++ {
		baseLength[code] = length
		for i := 0; i < 1<<extraLengthBits[code]; i++ {
			lengthSymbol[length] = code
			length++
		}
	}
	// match length 258 uses the last code with no extra bits
	lengthSymbol[255] = lengthCodes - 1

	dist := 0
	for code := 0; code < 16; code++ {
		baseDist[code] = dist
		for i := 0; i < 1<<extraDistBits[code]; i++ {
			distSymbol[dist] = code
			dist++
		}
	}
	dist >>= 7
	for code := 16; code < distCodes; code++ {
		baseDist[code] = dist << 7
		for i := 0; i < 1<<(extraDistBits[code]-7); i++ {
			distSymbol[256+dist] = code
			dist++
		}
	}

	var counts [maxCodeBits + 1]int
	for n := range staticLitLen {
		switch {
		case n <= 143:
			staticLitLen[n] = 8
		case n <= 255:
			staticLitLen[n] = 9
		case n <= 279:
			staticLitLen[n] = 7
		default:
			staticLitLen[n] = 8
		}
		counts[staticLitLen[n]]++
	}
	genCodes(staticLitLen[:], staticLitCode[:], litCodes+1, counts[:])

	for n := 0; n < distCodes; n++ {
		staticDistLen[n] = 5
		staticDistCode[n] = reverseBits(n, 5)
	}
}

func distSym(dist int) int {
	if dist < 256 {
		return distSymbol[dist]
	}

	return distSymbol[256+(dist>>7)]
}

func reverseBits(code, n int) int {
	res := 0
	for i := 0; i < n; i++ {
		res = res<<1 | code&1
		code >>= 1
	}

	return res
}

// genCodes assigns canonical Huffman codes, bit-reversed for LSB-first
// emission, from the code lengths in lens.
func genCodes(lens, codes []int, maxCode int, counts []int) {
	var nextCode [maxCodeBits + 1]int

	code := 0
	for bits := 1; bits <= maxCodeBits; bits++ {
		code = (code + counts[bits-1]) << 1
		nextCode[bits] = code
	}

	for n := 0; n <= maxCode; n++ {
		l := lens[n]
		if l == 0 {
			continue
		}

		codes[n] = reverseBits(nextCode[l], l)
		nextCode[l]++
	}
}

type symbol struct {
	dist int
	lc   int
}

type treeDesc struct {
	elems     int
	extra     []int
	extraBase int
	maxLength int
	maxCode   int
}

type deflator struct {
	data []byte
	out  []byte

	biBuf   uint32
	biValid uint

	head []int
	prev []int

	syms []symbol

	litFreq  []int
	litLen   []int
	litCode  []int
	litDad   []int
	distFreq []int
	distLen  []int
	distCode []int
	distDad  []int
	blFreq   []int
	blLen    []int
	blCode   []int
	blDad    []int

	optLen    int
	staticLen int

	depth    []int
	heap     []int
	heapLen  int
	heapMax  int
	blCounts []int
}

func newDeflator(data []byte) *deflator {
	d := &deflator{
		data:     data,
		head:     make([]int, hashMask+1),
		prev:     make([]int, windowSize),
		litFreq:  make([]int, heapCap),
		litLen:   make([]int, heapCap),
		litCode:  make([]int, heapCap),
		litDad:   make([]int, heapCap),
		distFreq: make([]int, 2*distCodes+1),
		distLen:  make([]int, 2*distCodes+1),
		distCode: make([]int, 2*distCodes+1),
		distDad:  make([]int, 2*distCodes+1),
		blFreq:   make([]int, 2*codeLenCode+1),
		blLen:    make([]int, 2*codeLenCode+1),
		blCode:   make([]int, 2*codeLenCode+1),
		blDad:    make([]int, 2*codeLenCode+1),
		depth:    make([]int, heapCap),
		heap:     make([]int, heapCap+1),
		blCounts: make([]int, maxCodeBits+1),
	}
	d.initBlock()

	return d
}

func (d *deflator) initBlock() {
	for i := range d.litFreq {
		d.litFreq[i] = 0
	}
	for i := range d.distFreq {
		d.distFreq[i] = 0
	}
	for i := range d.blFreq {
		d.blFreq[i] = 0
	}

	d.litFreq[endBlock] = 1
	d.optLen = 0
	d.staticLen = 0
	d.syms = d.syms[:0]
}

// byteAt reads the window with the zeroed slack zlib keeps past the
// input, so matches may scan beyond the last byte exactly as zlib does.
func (d *deflator) byteAt(i int) byte {
	if i < len(d.data) {
		return d.data[i]
	}

	return 0
}

func (d *deflator) sendBits(value, n int) {
	d.biBuf |= uint32(value) << d.biValid
	d.biValid += uint(n)

	for d.biValid >= 8 {
		d.out = append(d.out, byte(d.biBuf))
		d.biBuf >>= 8
		d.biValid -= 8
	}
}

func (d *deflator) biWindup() {
	if d.biValid > 0 {
		d.out = append(d.out, byte(d.biBuf))
	}

	d.biBuf = 0
	d.biValid = 0
}

// smaller orders heap nodes by frequency, breaking ties by tree depth
// so the constructed tree matches zlib's exactly.
func (d *deflator) smaller(freq []int, n, m int) bool {
	return freq[n] < freq[m] || (freq[n] == freq[m] && d.depth[n] <= d.depth[m])
}

func (d *deflator) pqdownheap(freq []int, k int) {
	v := d.heap[k]

	for j := k << 1; j <= d.heapLen; j <<= 1 {
		if j < d.heapLen && d.smaller(freq, d.heap[j+1], d.heap[j]) {
			j++
		}
		if d.smaller(freq, v, d.heap[j]) {
			break
		}

		d.heap[k] = d.heap[j]
		k = j
	}

	d.heap[k] = v
}

func (d *deflator) buildTree(freq, lens, codes, dad []int, desc *treeDesc, statLens []int) {
	d.heapLen = 0
	d.heapMax = heapCap
	maxCode := -1

	for n := 0; n < desc.elems; n++ {
		if freq[n] != 0 {
			d.heapLen++
			d.heap[d.heapLen] = n
			maxCode = n
			d.depth[n] = 0
		} else {
			lens[n] = 0
		}
	}

	// deflate requires at least two codes per tree
	for d.heapLen < 2 {
		node := 0
		if maxCode < 2 {
			maxCode++
			node = maxCode
		}

		d.heapLen++
		d.heap[d.heapLen] = node
		freq[node] = 1
		d.depth[node] = 0
		d.optLen--
		if statLens != nil {
			d.staticLen -= statLens[node]
		}
	}
	desc.maxCode = maxCode

	for n := d.heapLen / 2; n >= 1; n-- {
		d.pqdownheap(freq, n)
	}

	node := desc.elems
	for {
		n := d.heap[1]
		d.heap[1] = d.heap[d.heapLen]
		d.heapLen--
		d.pqdownheap(freq, 1)
		m := d.heap[1]

		d.heapMax--
		d.heap[d.heapMax] = n
		d.heapMax--
		d.heap[d.heapMax] = m

		freq[node] = freq[n] + freq[m]
		if d.depth[n] >= d.depth[m] {
			d.depth[node] = d.depth[n] + 1
		} else {
			d.depth[node] = d.depth[m] + 1
		}
		dad[n] = node
		dad[m] = node

		d.heap[1] = node
		node++
		d.pqdownheap(freq, 1)

		if d.heapLen < 2 {
			break
		}
	}

	d.heapMax--
	d.heap[d.heapMax] = d.heap[1]

	d.genBitLen(freq, lens, dad, desc, statLens)
	genCodes(lens, codes, desc.maxCode, d.blCounts)
}

func (d *deflator) genBitLen(freq, lens, dad []int, desc *treeDesc, statLens []int) {
	overflow := 0
	for bits := 0; bits <= maxCodeBits; bits++ {
		d.blCounts[bits] = 0
	}

	lens[d.heap[d.heapMax]] = 0

	h := d.heapMax + 1
	for ; h < heapCap; h++ {
		n := d.heap[h]
		bits := lens[dad[n]] + 1
		if bits > desc.maxLength {
			bits = desc.maxLength
			overflow++
		}
		lens[n] = bits

		if n > desc.maxCode {
			continue
		}

		d.blCounts[bits]++
		xbits := 0
		if n >= desc.extraBase {
			xbits = desc.extra[n-desc.extraBase]
		}
		d.optLen += freq[n] * (bits + xbits)
		if statLens != nil {
			d.staticLen += freq[n] * (statLens[n] + xbits)
		}
	}

	if overflow == 0 {
		return
	}

	for overflow > 0 {
		bits := desc.maxLength - 1
		for d.blCounts[bits] == 0 {
			bits--
		}

		d.blCounts[bits]--
		d.blCounts[bits+1] += 2
		d.blCounts[desc.maxLength]--
		overflow -= 2
	}

	h = heapCap
	for bits := desc.maxLength; bits != 0; bits-- {
		n := d.blCounts[bits]
		for n != 0 {
			h--
			m := d.heap[h]
			if m > desc.maxCode {
				continue
			}

			if lens[m] != bits {
				d.optLen += (bits - lens[m]) * freq[m]
				lens[m] = bits
			}
			n--
		}
	}
}

// scanTree tallies the run-length symbols needed to transmit the code
// lengths in lens.
func (d *deflator) scanTree(lens []int, maxCode int) {
	prevLen := -1
	nextLen := lens[0]
	count := 0
	maxCount, minCount := 7, 4
	if nextLen == 0 {
		maxCount, minCount = 138, 3
	}

	lens[maxCode+1] = 0xffff // guard

	for n := 0; n <= maxCode; n++ {
		curLen := nextLen
		nextLen = lens[n+1]
		count++

		switch {
		case count < maxCount && curLen == nextLen:
			continue
		case count < minCount:
			d.blFreq[curLen] += count
		case curLen != 0:
			if curLen != prevLen {
				d.blFreq[curLen]++
			}
			d.blFreq[rep36]++
		case count <= 10:
			d.blFreq[repz310]++
		default:
			d.blFreq[repz11138]++
		}

		count = 0
		prevLen = curLen
		switch {
		case nextLen == 0:
			maxCount, minCount = 138, 3
		case curLen == nextLen:
			maxCount, minCount = 6, 3
		default:
			maxCount, minCount = 7, 4
		}
	}
}

func (d *deflator) sendTree(lens []int, maxCode int) {
	prevLen := -1
	nextLen := lens[0]
	count := 0
	maxCount, minCount := 7, 4
	if nextLen == 0 {
		maxCount, minCount = 138, 3
	}

	for n := 0; n <= maxCode; n++ {
		curLen := nextLen
		nextLen = lens[n+1]
		count++

		switch {
		case count < maxCount && curLen == nextLen:
			continue
		case count < minCount:
			for i := 0; i < count; i++ {
				d.sendBits(d.blCode[curLen], d.blLen[curLen])
			}
		case curLen != 0:
			if curLen != prevLen {
				d.sendBits(d.blCode[curLen], d.blLen[curLen])
				count--
			}
			d.sendBits(d.blCode[rep36], d.blLen[rep36])
			d.sendBits(count-3, 2)
		case count <= 10:
			d.sendBits(d.blCode[repz310], d.blLen[repz310])
			d.sendBits(count-3, 3)
		default:
			d.sendBits(d.blCode[repz11138], d.blLen[repz11138])
			d.sendBits(count-11, 7)
		}

		count = 0
		prevLen = curLen
		switch {
		case nextLen == 0:
			maxCount, minCount = 138, 3
		case curLen == nextLen:
			maxCount, minCount = 6, 3
		default:
			maxCount, minCount = 7, 4
		}
	}
}

func (d *deflator) compressBlock(litLen, litCode, distLen, distCode []int) {
	for _, s := range d.syms {
		if s.dist == 0 {
			d.sendBits(litCode[s.lc], litLen[s.lc])
			continue
		}

		code := lengthSymbol[s.lc]
		d.sendBits(litCode[code+numLiterals+1], litLen[code+numLiterals+1])
		if extra := extraLengthBits[code]; extra != 0 {
			d.sendBits(s.lc-baseLength[code], extra)
		}

		dist := s.dist - 1
		code = distSym(dist)
		d.sendBits(distCode[code], distLen[code])
		if extra := extraDistBits[code]; extra != 0 {
			d.sendBits(dist-baseDist[code], extra)
		}
	}

	d.sendBits(litCode[endBlock], litLen[endBlock])
}

func (d *deflator) tally(dist, lc int) bool {
	d.syms = append(d.syms, symbol{dist: dist, lc: lc})

	if dist == 0 {
		d.litFreq[lc]++
	} else {
		d.litFreq[lengthSymbol[lc]+numLiterals+1]++
		d.distFreq[distSym(dist-1)]++
	}

	return len(d.syms) == symLimit
}

func (d *deflator) flushBlock(blockStart, strstart int, last bool) {
	storedLen := strstart - blockStart

	lDesc := treeDesc{elems: litCodes, extra: extraLengthBits[:], extraBase: numLiterals + 1, maxLength: maxCodeBits}
	dDesc := treeDesc{elems: distCodes, extra: extraDistBits[:], extraBase: 0, maxLength: maxCodeBits}
	blDesc := treeDesc{elems: codeLenCode, extra: extraCodeLenBits[:], extraBase: 0, maxLength: maxBLBits}

	d.buildTree(d.litFreq, d.litLen, d.litCode, d.litDad, &lDesc, staticLitLen[:])
	d.buildTree(d.distFreq, d.distLen, d.distCode, d.distDad, &dDesc, staticDistLen[:])

	d.scanTree(d.litLen, lDesc.maxCode)
	d.scanTree(d.distLen, dDesc.maxCode)
	d.buildTree(d.blFreq, d.blLen, d.blCode, d.blDad, &blDesc, nil)

	maxBLIndex := codeLenCode - 1
	for maxBLIndex >= 3 && d.blLen[codeLenOrder[maxBLIndex]] == 0 {
		maxBLIndex--
	}
	d.optLen += 3*(maxBLIndex+1) + 5 + 5 + 4

	optLenb := (d.optLen + 3 + 7) >> 3
	staticLenb := (d.staticLen + 3 + 7) >> 3
	if staticLenb <= optLenb {
		optLenb = staticLenb
	}

	lastBit := 0
	if last {
		lastBit = 1
	}

	switch {
	case storedLen+4 <= optLenb:
		d.sendBits(0<<1|lastBit, 3)
		d.biWindup()
		n := uint16(storedLen)
		d.out = append(d.out, byte(n), byte(n>>8), byte(^n), byte(^n>>8))
		d.out = append(d.out, d.data[blockStart:strstart]...)
	case staticLenb == optLenb:
		d.sendBits(1<<1|lastBit, 3)
		d.compressBlock(staticLitLen[:], staticLitCode[:], staticDistLen[:], staticDistCode[:])
	default:
		d.sendBits(2<<1|lastBit, 3)
		d.sendBits(lDesc.maxCode+1-257, 5)
		d.sendBits(dDesc.maxCode+1-1, 5)
		d.sendBits(maxBLIndex+1-4, 4)
		for rank := 0; rank <= maxBLIndex; rank++ {
			d.sendBits(d.blLen[codeLenOrder[rank]], 3)
		}
		d.sendTree(d.litLen, lDesc.maxCode)
		d.sendTree(d.distLen, dDesc.maxCode)
		d.compressBlock(d.litLen, d.litCode, d.distLen, d.distCode)
	}

	d.initBlock()
	if last {
		d.biWindup()
	}
}

// longestMatch walks the hash chain for the string at strstart and
// returns the best match length and its start, capped at the remaining
// lookahead.
func (d *deflator) longestMatch(curMatch, strstart, lookahead, prevLength int) (int, int) {
	chain := maxChain
	bestLen := prevLength
	if prevLength >= goodMatch {
		chain >>= 2
	}

	nice := niceMatch
	if nice > lookahead {
		nice = lookahead
	}

	limit := 0
	if strstart > maxDist {
		limit = strstart - maxDist
	}

	matchStart := 0
	scanEnd1 := d.byteAt(strstart + bestLen - 1)
	scanEnd := d.byteAt(strstart + bestLen)

	for {
		if d.byteAt(curMatch+bestLen) == scanEnd &&
			d.byteAt(curMatch+bestLen-1) == scanEnd1 &&
			d.byteAt(curMatch) == d.byteAt(strstart) &&
			d.byteAt(curMatch+1) == d.byteAt(strstart+1) {
			length := 2
			for length < maxMatch && d.byteAt(strstart+length) == d.byteAt(curMatch+length) {
				length++
			}

			if length > bestLen {
				matchStart = curMatch
				bestLen = length
				if length >= nice {
					break
				}

				scanEnd1 = d.byteAt(strstart + bestLen - 1)
				scanEnd = d.byteAt(strstart + bestLen)
			}
		}

		curMatch = d.prev[curMatch&windowMask]
		chain--
		if curMatch <= limit || chain == 0 {
			break
		}
	}

	if bestLen <= lookahead {
		return bestLen, matchStart
	}

	return lookahead, matchStart
}

// deflate runs zlib's lazy-match loop: each position either improves on
// the match found at the previous position or emits that previous
// match.
func (d *deflator) deflate() []byte {
	data := d.data
	n := len(data)

	strstart, blockStart := 0, 0
	matchAvailable := false
	matchStart := 0
	matchLength := minMatch - 1

	insH := 0
	if n >= 2 {
		insH = (int(data[0])<<hashShift ^ int(data[1])) & hashMask
	}

	for strstart < n {
		lookahead := n - strstart

		hashHead := 0
		if lookahead >= minMatch {
			insH = (insH<<hashShift ^ int(data[strstart+minMatch-1])) & hashMask
			hashHead = d.head[insH]
			d.prev[strstart&windowMask] = hashHead
			d.head[insH] = strstart
		}

		prevLength := matchLength
		prevMatch := matchStart
		matchLength = minMatch - 1

		if hashHead != 0 && prevLength < maxLazy && strstart-hashHead <= maxDist {
			var ms int
			matchLength, ms = d.longestMatch(hashHead, strstart, lookahead, prevLength)
			if matchLength > prevLength {
				matchStart = ms
			}
			if matchLength == minMatch && strstart-matchStart > tooFar {
				matchLength = minMatch - 1
			}
		}

		switch {
		case prevLength >= minMatch && matchLength <= prevLength:
			maxInsert := strstart + lookahead - minMatch
			bflush := d.tally(strstart-1-prevMatch, prevLength-minMatch)

			prevLength -= 2
			for {
				strstart++
				if strstart <= maxInsert {
					insH = (insH<<hashShift ^ int(data[strstart+minMatch-1])) & hashMask
					d.prev[strstart&windowMask] = d.head[insH]
					d.head[insH] = strstart
				}

				prevLength--
				if prevLength == 0 {
					break
				}
			}

			matchAvailable = false
			matchLength = minMatch - 1
			strstart++

			if bflush {
				d.flushBlock(blockStart, strstart, false)
				blockStart = strstart
			}
		case matchAvailable:
			if d.tally(0, int(data[strstart-1])) {
				d.flushBlock(blockStart, strstart, false)
				blockStart = strstart
			}
			strstart++
		default:
			matchAvailable = true
			strstart++
		}
	}

	if matchAvailable {
		d.tally(0, int(data[strstart-1]))
	}
	d.flushBlock(blockStart, strstart, true)

	return d.out
}

// zlibDeflate wraps the deflate body with the zlib header and the
// big-endian Adler-32 checksum of the input.
func zlibDeflate(data []byte) []byte {
	body := newDeflator(data).deflate()

	out := make([]byte, 0, len(body)+6)
	out = append(out, 0x78, 0x9c)
	out = append(out, body...)

	sum := adler32.Checksum(data)

	return append(out, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
}
