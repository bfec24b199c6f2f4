package schema

// The tables below mirror the sdapi payloads of the Automatic1111 backend.
// They are configuration data: adding or removing a field is a table edit,
// not a code change.

// API describes the operation selector of the request envelope.
var API = Schema{
	"method": {
		Type:     String,
		Required: true,
		Constraint: func(v any) bool {
			s, _ := v.(string)
			return s == "GET" || s == "POST"
		},
	},
	"endpoint": {
		Type:     String,
		Required: true,
	},
}

// Txt2Img validates payloads for the text-to-image endpoint.
var Txt2Img = Schema{
	"enable_hr": {Type: Bool, Default: false},
	"denoising_strength": {Type: Float, Default: float64(0)},
	"firstphase_width": {Type: Int, Default: 0},
	"firstphase_height": {Type: Int, Default: 0},
	"hr_scale": {Type: Float, Default: float64(2)},
	"hr_upscaler": {Type: String, Default: nil},
	"hr_second_pass_steps": {Type: Int, Default: 0},
	"hr_resize_x": {Type: Int, Default: 0},
	"hr_resize_y": {Type: Int, Default: 0},
	"prompt": {Type: String, Required: true},
	"styles": {Type: List, Default: nil},
	"seed": {Type: Int, Default: -1},
	"subseed": {Type: Int, Default: -1},
	"subseed_strength": {Type: Float, Default: float64(0)},
	"seed_resize_from_h": {Type: Int, Default: -1},
	"seed_resize_from_w": {Type: Int, Default: -1},
	"sampler_name": {Type: String, Default: nil},
	"batch_size": {Type: Int, Default: 1},
	"n_iter": {Type: Int, Default: 1},
	"steps": {Type: Int, Default: 50},
	"cfg_scale": {Type: Float, Default: float64(7)},
	"width": {Type: Int, Default: 512},
	"height": {Type: Int, Default: 512},
	"restore_faces": {Type: Bool, Default: false},
	"tiling": {Type: Bool, Default: false},
	"negative_prompt": {Type: String, Default: nil},
	"eta": {Type: Float, Default: float64(0)},
	"s_churn": {Type: Float, Default: float64(0)},
	"s_tmax": {Type: Float, Default: float64(0)},
	"s_tmin": {Type: Float, Default: float64(0)},
	"s_noise": {Type: Float, Default: float64(1)},
	"override_settings": {Type: Dict, Default: nil},
	"override_settings_restore_afterwards": {Type: Bool, Default: true},
	"script_args": {Type: List, Default: nil},
	"sampler_index": {Type: String, Default: "Euler"},
	"script_name": {Type: String, Default: nil},
	"send_images": {Type: Bool, Default: true},
	"save_images": {Type: Bool, Default: false},
	"alwayson_scripts": {Type: Dict, Default: nil},
}

// Img2Img validates payloads for the image-to-image endpoint.
var Img2Img = Schema{
	"init_images": {Type: List, Required: true},
	"resize_mode": {Type: Int, Default: 0},
	"denoising_strength": {Type: Float, Default: 0.75},
	"image_cfg_scale": {Type: Float, Default: nil},
	"mask": {Type: String, Default: nil},
	"mask_blur": {Type: Int, Default: 4},
	"inpainting_fill": {Type: Int, Default: 0},
	"inpaint_full_res": {Type: Bool, Default: true},
	"inpaint_full_res_padding": {Type: Int, Default: 0},
	"inpainting_mask_invert": {Type: Int, Default: 0},
	"initial_noise_multiplier": {Type: Float, Default: nil},
	"prompt": {Type: String, Default: ""},
	"styles": {Type: List, Default: nil},
	"seed": {Type: Int, Default: -1},
	"subseed": {Type: Int, Default: -1},
	"subseed_strength": {Type: Float, Default: float64(0)},
	"seed_resize_from_h": {Type: Int, Default: -1},
	"seed_resize_from_w": {Type: Int, Default: -1},
	"sampler_name": {Type: String, Default: nil},
	"batch_size": {Type: Int, Default: 1},
	"n_iter": {Type: Int, Default: 1},
	"steps": {Type: Int, Default: 50},
	"cfg_scale": {Type: Float, Default: float64(7)},
	"width": {Type: Int, Default: 512},
	"height": {Type: Int, Default: 512},
	"restore_faces": {Type: Bool, Default: false},
	"tiling": {Type: Bool, Default: false},
	"negative_prompt": {Type: String, Default: nil},
	"eta": {Type: Float, Default: float64(0)},
	"s_churn": {Type: Float, Default: float64(0)},
	"s_tmax": {Type: Float, Default: float64(0)},
	"s_tmin": {Type: Float, Default: float64(0)},
	"s_noise": {Type: Float, Default: float64(1)},
	"override_settings": {Type: Dict, Default: nil},
	"override_settings_restore_afterwards": {Type: Bool, Default: true},
	"script_args": {Type: List, Default: nil},
	"sampler_index": {Type: String, Default: "Euler"},
	"include_init_images": {Type: Bool, Default: false},
	"script_name": {Type: String, Default: nil},
	"send_images": {Type: Bool, Default: true},
	"save_images": {Type: Bool, Default: false},
	"alwayson_scripts": {Type: Dict, Default: nil},
}

// Options validates POST bodies for the backend options endpoint.
var Options = Schema{
	"sd_model_checkpoint": {Type: String, Required: true},
	"sd_vae": {Type: String, Default: nil},
}

// payloadRule binds a backend endpoint to the schema its payload must
// satisfy. An empty Method matches any method.
type payloadRule struct {
	Endpoint string
	Method   string
	Schema   Schema
}

var payloadRules = []payloadRule{
	{Endpoint: "txt2img", Schema: Txt2Img},
	{Endpoint: "img2img", Schema: Img2Img},
	{Endpoint: "options", Method: "POST", Schema: Options},
}

// ForEndpoint returns the schema registered for the endpoint/method pair.
// The second return value is false when no schema is registered, which means
// the payload is proxied to the backend without validation.
func ForEndpoint(endpoint, method string) (Schema, bool) {
	for _, rule := range payloadRules {
		if rule.Endpoint != endpoint {
			continue
		}
		if rule.Method != "" && rule.Method != method {
			continue
		}
		return rule.Schema, true
	}
	return nil, false
}
