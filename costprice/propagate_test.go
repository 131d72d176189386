package costprice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

func TestPropagateConvergesToStaticPrice(t *testing.T) {
	m := model.New()
	p, err := m.AddProduct("gas")
	require.NoError(t, err)
	p.Price, err = expr.Compile("5", m)
	require.NoError(t, err)

	result := Propagate(m, 0, 1, DefaultOptions())
	require.True(t, result.Converged)
	require.InDelta(t, 5.0, p.CostPrice[0].Number, 1e-3)
}

func TestPropagateFlowWeightedAverageOfInflows(t *testing.T) {
	m := model.New()
	source, err := m.AddProcess("plant", 0)
	require.NoError(t, err)
	source.VariableCost, err = expr.Compile("2", m)
	require.NoError(t, err)

	product, err := m.AddProduct("power")
	require.NoError(t, err)

	link, err := m.AddLink(model.Ref{Kind: model.KindProcess, ID: source.ID}, model.Ref{Kind: model.KindProduct, ID: product.ID})
	require.NoError(t, err)
	link.ActualFlow = []expr.Value{expr.Num(10)}

	result := Propagate(m, 0, 1, DefaultOptions())
	require.True(t, result.Converged)
	require.InDelta(t, 2.0, product.CostPrice[0].Number, 1e-3)
}

func TestPropagateGrowsCostPriceVectorToEnd(t *testing.T) {
	m := model.New()
	p, err := m.AddProduct("gas")
	require.NoError(t, err)

	Propagate(m, 0, 5, DefaultOptions())
	require.Len(t, p.CostPrice, 5)
}

func TestPropagateNoCostForUnpricedProductWithNoInflow(t *testing.T) {
	m := model.New()
	p, err := m.AddProduct("scrap")
	require.NoError(t, err)

	result := Propagate(m, 0, 1, DefaultOptions())
	require.True(t, result.Converged)
	require.Equal(t, expr.KindNoCost, p.CostPrice[0].Kind)
}

func TestPropagateConstraintTransfersCostToUnlinkedProduct(t *testing.T) {
	m := model.New()
	source, err := m.AddProduct("steam")
	require.NoError(t, err)
	source.Price, err = expr.Compile("8", m)
	require.NoError(t, err)
	source.Stock = []expr.Value{expr.Num(1)}

	target, err := m.AddProduct("condensate")
	require.NoError(t, err)
	target.Stock = []expr.Value{expr.Num(1)}

	c, err := m.AddConstraint(
		model.Ref{Kind: model.KindProduct, ID: source.ID},
		model.Ref{Kind: model.KindProduct, ID: target.ID},
	)
	require.NoError(t, err)
	c.ShareOfCost = 0.5

	result := Propagate(m, 0, 1, DefaultOptions())
	require.True(t, result.Converged)
	require.InDelta(t, 4.0, target.CostPrice[0].Number, 1e-3)
}

func TestPropagateHighestCostPriceScalesByShareOfCostAndRate(t *testing.T) {
	m := model.New()
	source, err := m.AddProcess("boiler", 0)
	require.NoError(t, err)
	source.VariableCost, err = expr.Compile("3", m)
	require.NoError(t, err)

	product, err := m.AddProduct("heat")
	require.NoError(t, err)

	link, err := m.AddLink(model.Ref{Kind: model.KindProcess, ID: source.ID}, model.Ref{Kind: model.KindProduct, ID: product.ID})
	require.NoError(t, err)
	link.ActualFlow = []expr.Value{expr.Num(6)}
	link.Rate, err = expr.Compile("2", m)
	require.NoError(t, err)
	link.ShareOfCost = 0.5

	Propagate(m, 0, 1, DefaultOptions())
	require.InDelta(t, 0.75, product.HighestCostPrice[0].Number, 1e-3)
}
