package headerstore

// headerRow is the ClickHouse row shape for a stored header. number is
// kept as a String column holding the decimal form: header numbers are
// modeled as *big.Int throughout the fetch path.
type headerRow struct {
	Number     string
	Hash       string
	ParentHash string
	Time       uint64
}

// bodyRow is the ClickHouse row shape for a stored body.
type bodyRow struct {
	BlockHash    string
	Number       string
	Transactions [][]byte
}
