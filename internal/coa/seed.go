package coa

import "context"

// seedAccount is one row of the standard chart.
type seedAccount struct {
	Code      string
	Name      string
	Type      AccountType
	Direction Direction
	CashFlow  CashFlowCategory
}

// standardChart is the seeded one-level chart (Chinese MoF codes). The
// engine itself is chart-agnostic; statement mappings reference these
// prefixes by configuration.
var standardChart = []seedAccount{
	{"1001", "库存现金", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1002", "银行存款", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1012", "其他货币资金", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1122", "应收账款", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1123", "预付账款", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1231", "坏账准备", AccountTypeAsset, DirectionCredit, CashFlowNone},
	{"1403", "原材料", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1405", "库存商品", AccountTypeAsset, DirectionDebit, CashFlowOperating},
	{"1411", "材料成本差异", AccountTypeAsset, DirectionDebit, CashFlowNone},
	{"1601", "固定资产", AccountTypeAsset, DirectionDebit, CashFlowInvesting},
	{"1602", "累计折旧", AccountTypeAsset, DirectionCredit, CashFlowNone},
	{"1603", "固定资产减值准备", AccountTypeAsset, DirectionCredit, CashFlowNone},
	{"1604", "在建工程", AccountTypeAsset, DirectionDebit, CashFlowInvesting},
	{"2001", "短期借款", AccountTypeLiability, DirectionCredit, CashFlowFinancing},
	{"2202", "应付账款", AccountTypeLiability, DirectionCredit, CashFlowOperating},
	{"2203", "预收账款", AccountTypeLiability, DirectionCredit, CashFlowOperating},
	{"2211", "应付职工薪酬", AccountTypeLiability, DirectionCredit, CashFlowOperating},
	{"2221", "应交税费", AccountTypeLiability, DirectionCredit, CashFlowOperating},
	{"2501", "长期借款", AccountTypeLiability, DirectionCredit, CashFlowFinancing},
	{"4001", "实收资本", AccountTypeEquity, DirectionCredit, CashFlowFinancing},
	{"4002", "资本公积", AccountTypeEquity, DirectionCredit, CashFlowFinancing},
	{"4101", "盈余公积", AccountTypeEquity, DirectionCredit, CashFlowNone},
	{"4103", "本年利润", AccountTypeEquity, DirectionCredit, CashFlowNone},
	{"4104", "利润分配", AccountTypeEquity, DirectionCredit, CashFlowNone},
	{"6001", "主营业务收入", AccountTypeRevenue, DirectionCredit, CashFlowOperating},
	{"6051", "其他业务收入", AccountTypeRevenue, DirectionCredit, CashFlowOperating},
	{"6061", "汇兑收益", AccountTypeRevenue, DirectionCredit, CashFlowNone},
	{"6111", "投资收益", AccountTypeRevenue, DirectionCredit, CashFlowInvesting},
	{"6301", "营业外收入", AccountTypeRevenue, DirectionCredit, CashFlowNone},
	{"6401", "主营业务成本", AccountTypeExpense, DirectionDebit, CashFlowOperating},
	{"6402", "其他业务成本", AccountTypeExpense, DirectionDebit, CashFlowOperating},
	{"6601", "销售费用", AccountTypeExpense, DirectionDebit, CashFlowOperating},
	{"6602", "管理费用", AccountTypeExpense, DirectionDebit, CashFlowOperating},
	{"6603", "财务费用", AccountTypeExpense, DirectionDebit, CashFlowFinancing},
	{"6701", "资产减值损失", AccountTypeExpense, DirectionDebit, CashFlowNone},
	{"6711", "营业外支出", AccountTypeExpense, DirectionDebit, CashFlowNone},
	{"6801", "所得税费用", AccountTypeExpense, DirectionDebit, CashFlowOperating},
}

// Seed loads the standard chart. Existing codes are left untouched so the
// operation is idempotent.
func (s *Service) Seed(ctx context.Context) (int, error) {
	loaded := 0
	for _, row := range standardChart {
		account := Account{
			Code:      row.Code,
			Name:      row.Name,
			Level:     1,
			Type:      row.Type,
			Direction: row.Direction,
			CashFlow:  row.CashFlow,
			Enabled:   true,
			System:    true,
		}
		if err := s.repo.InsertAccount(ctx, account); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}
