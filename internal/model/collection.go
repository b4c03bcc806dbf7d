package model

// NamedResult 工作簿中的一个条目
type NamedResult struct {
	Name   string
	Result *Result
}

// NamedResults 按插入顺序保存的报表结果集合（仅由主流程追加）
type NamedResults struct {
	entries []NamedResult
	index   map[string]int
}

// NewNamedResults 创建空集合
func NewNamedResults() *NamedResults {
	return &NamedResults{index: make(map[string]int)}
}

// Add 追加结果；空结果不入集合，返回是否已加入。同名条目覆盖原值但保留原位置。
func (c *NamedResults) Add(name string, r *Result) bool {
	if r.IsEmpty() {
		return false
	}
	if i, ok := c.index[name]; ok {
		c.entries[i].Result = r
		return true
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, NamedResult{Name: name, Result: r})
	return true
}

// Get 按名称获取
func (c *NamedResults) Get(name string) (*Result, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.entries[i].Result, true
}

// Entries 按插入顺序返回全部条目
func (c *NamedResults) Entries() []NamedResult {
	out := make([]NamedResult, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len 条目数
func (c *NamedResults) Len() int {
	return len(c.entries)
}

// TotalRows 全部条目的数据行数之和
func (c *NamedResults) TotalRows() int {
	n := 0
	for _, e := range c.entries {
		n += e.Result.NumRows()
	}
	return n
}
