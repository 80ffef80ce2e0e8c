package schema

// Example returns the reference "demo" schema: one principal, one declared
// error and an auth service with an open and a principal-gated endpoint.
func Example() *Schema {
	code := 401
	return &Schema{
		Config: Config{
			ProjectName: "demo",
			Principals: []Principal{
				{ID: "user", Attributes: Fields{{Name: "id", Type: String}}},
			},
			Errors: []Error{
				{ID: "invalid_credentials", Code: &code},
			},
		},
		Services: []Service{
			{
				ID: "auth",
				Endpoints: []Endpoint{
					{
						ID:  "login",
						Req: Fields{{Name: "email", Type: String}, {Name: "password", Type: String}},
						Res: Fields{{Name: "token", Type: String}},
					},
					{
						ID:        "whoami",
						Req:       Fields{},
						Res:       Fields{{Name: "principal_id", Type: String}},
						Principal: "user",
					},
				},
			},
		},
	}
}
