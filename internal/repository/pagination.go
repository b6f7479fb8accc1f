package repository

import "gorm.io/gorm"

// maxPageSize 仓储层分页上限，防止台账/批次列表一次拉全表
const maxPageSize = 500

// applyPagination 应用分页参数。pageSize 非正值视为调用方自担的不分页查询
// （清扫等内部路径有自己的 limit），非法页码归一到第一页。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}
