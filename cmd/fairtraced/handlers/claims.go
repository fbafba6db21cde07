package handlers

import (
	"net/http"

	bindclaims "github.com/fairtrace/fairtrace/pkg/api/binding/claims"
	binderr "github.com/fairtrace/fairtrace/pkg/api/binding/errors"
	apiclaims "github.com/fairtrace/fairtrace/pkg/api/types/claims"
	"github.com/fairtrace/fairtrace/pkg/auth"
	"github.com/fairtrace/fairtrace/pkg/claims"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/utils"
	"github.com/labstack/echo/v4"
)

func CreateClaimHandler(dbclaims fdb.ClaimInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := admin(c); err != nil {
			return err
		}
		spec := apiclaims.ClaimSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		param, err := bindclaims.ParseClaimSpec(spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		if param, err = claims.ValidateClaim(param); err != nil {
			return binderr.FromDB(err)
		}
		cl, err := dbclaims.Create(c.Request().Context(), param)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindclaims.ComposeClaim(cl))
	}
}

func FindClaimsHandler(dbclaims fdb.ClaimInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		var scope fdb.ClaimScope
		if s := c.QueryParam("scope"); s != "" {
			sc, err := fdb.AsClaimScope(s)
			if err != nil {
				return binderr.FromDB(err)
			}
			scope = sc
		}
		cls, err := dbclaims.Find(c.Request().Context(), scope)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, utils.Map(cls, bindclaims.ComposeClaim))
	}
}

// AttachHandler attaches a claim to a batch, a transaction or a company, on behalf of the acting node.
func AttachHandler(dbclaims fdb.ClaimInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apiclaims.AttachSpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		p, err := bindclaims.ParseAttachSpec(acting, c.Param(param), spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		attached, err := dbclaims.Attach(c.Request().Context(), p)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, bindclaims.ComposeAttachedClaim(attached))
	}
}

func FindAttachedHandler(dbclaims fdb.ClaimInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		target, err := bindclaims.ParseTarget(c.QueryParam("target_kind"), c.QueryParam("target_id"))
		if err != nil {
			return binderr.FromDB(err)
		}
		attached, err := dbclaims.FindAttached(c.Request().Context(), target)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, utils.Map(attached, bindclaims.ComposeAttachedClaim))
	}
}

// VerifyHandler records the decision of the acting node as the verifier.
func VerifyHandler(dbclaims fdb.ClaimInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, acting, err := auth.Acting(c)
		if err != nil {
			return err
		}
		spec := apiclaims.VerifySpec{}
		if err := decode(c, &spec); err != nil {
			return err
		}
		p, err := bindclaims.ParseVerifySpec(acting, c.Param(param), spec)
		if err != nil {
			return binderr.FromDB(err)
		}
		attached, v, err := dbclaims.Verify(c.Request().Context(), p)
		if err != nil {
			return binderr.FromDB(err)
		}
		return c.JSON(http.StatusOK, apiclaims.Verified{
			AttachedClaim: bindclaims.ComposeAttachedClaim(attached),
			Verification:  bindclaims.ComposeVerification(v),
		})
	}
}
