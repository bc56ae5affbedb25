package retrieval

// RetrieveInput 检索输入
type RetrieveInput struct {
	SessionID string
	VideoID   string
	Query     string

	// TopK 为 0 时按分块总数自适应
	TopK int
}

// RetrieveOutput 检索输出
type RetrieveOutput struct {
	// Chunks 按相似度降序排列，同分按 position 升序
	Chunks []*ScoredChunk
	// Evidence 带时间戳的证据行，供提示词拼装
	Evidence []string
	// SemanticQuery 剥离时间短语后实际参与向量召回的查询
	SemanticQuery string
	// Window 自查询解析出的时间窗口，nil 表示无时间约束
	Window *TimeWindow
	// TopK 实际生效的检索条数
	TopK int
	// Filtered 被低质量过滤剔除的候选数
	Filtered int
}
