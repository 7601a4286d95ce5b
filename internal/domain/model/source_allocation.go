package model

// 引当結果の1行（どの倉庫から何個）。永続化しない。
type SourceAllocation struct {
	WarehouseID   int64         `json:"warehouse_id"`
	WarehouseType WarehouseType `json:"warehouse_type"`
	StoreID       *int64        `json:"store_id"`
	Quantity      int64         `json:"quantity"`
}

func SumAllocated(allocs []SourceAllocation) int64 {
	var total int64
	for _, a := range allocs {
		total += a.Quantity
	}
	return total
}
