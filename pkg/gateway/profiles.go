package gateway

// Hub service profile codes. A profile classifies what a service is and
// therefore which presentation entities it yields.
const (
	ProfilePIR                 = 0
	ProfilePlug                = 1
	ProfileCurtain             = 3
	ProfileOnOffLight          = 4
	ProfileDoorSensor          = 5
	ProfileSmartDial           = 6
	ProfileColorLight          = 8
	ProfileDimmableLight       = 9
	ProfileTempHumiditySensor  = 11
	ProfileSwitchButton        = 12
	ProfileDimmableColorLight  = 13
	ProfileColorTempLight      = 14
	ProfileHADimmableLight     = 15
	ProfileHAColorLight        = 16
	ProfileHAColorTempLight    = 17
	ProfileDimmableLight2      = 19
	ProfileColorTemperature    = 20
	ProfileExtendedColorLight  = 21
	ProfileExtendedColorLight2 = 26
	ProfileSmartPlug           = 38
)

// Attribute names reported by hub services.
const (
	attrOn               = "on"
	attrBrightness       = "brightness"
	attrColorTemperature = "colorTemperature"
	attrHue              = "hue"
	attrSaturation       = "saturation"
	attrCurtainPercent   = "curtainPercent"
	attrCurtainMotor     = "curtainMotorStatus"
	attrMotion           = "motion"
	attrContact          = "contact"
	attrTemperature      = "temperature"
	attrHumidity         = "humidity"
	attrBattery          = "battery"
)

var (
	descSwitch = EntityDescription{
		Key:           "switch",
		Platform:      PlatformSwitch,
		RequiredAttrs: []string{attrOn},
	}
	descOnOffLight = EntityDescription{
		Key:           "light",
		Platform:      PlatformLight,
		RequiredAttrs: []string{attrOn},
	}
	descDimmableLight = EntityDescription{
		Key:           "light",
		Platform:      PlatformLight,
		RequiredAttrs: []string{attrOn, attrBrightness},
	}
	descColorTempLight = EntityDescription{
		Key:           "light",
		Platform:      PlatformLight,
		RequiredAttrs: []string{attrOn, attrBrightness, attrColorTemperature},
	}
	descColorLight = EntityDescription{
		Key:           "light",
		Platform:      PlatformLight,
		RequiredAttrs: []string{attrOn, attrBrightness, attrHue, attrSaturation},
	}
	descExtendedColorLight = EntityDescription{
		Key:           "light",
		Platform:      PlatformLight,
		RequiredAttrs: []string{attrOn, attrBrightness, attrColorTemperature, attrHue, attrSaturation},
	}
	descCurtain = EntityDescription{
		Key:           "cover",
		Platform:      PlatformCover,
		DeviceClass:   "curtain",
		RequiredAttrs: []string{attrCurtainPercent},
	}
	descMotion = EntityDescription{
		Key:           "motion",
		Platform:      PlatformBinarySensor,
		DeviceClass:   "motion",
		RequiredAttrs: []string{attrMotion},
	}
	descContact = EntityDescription{
		Key:           "contact",
		Platform:      PlatformBinarySensor,
		DeviceClass:   "door",
		RequiredAttrs: []string{attrContact},
	}
	descTemperature = EntityDescription{
		Key:           "temperature",
		Platform:      PlatformSensor,
		DeviceClass:   "temperature",
		RequiredAttrs: []string{attrTemperature},
	}
	descHumidity = EntityDescription{
		Key:           "humidity",
		Platform:      PlatformSensor,
		DeviceClass:   "humidity",
		RequiredAttrs: []string{attrHumidity},
	}
	descBattery = EntityDescription{
		Key:           "battery",
		Platform:      PlatformSensor,
		DeviceClass:   "battery",
		RequiredAttrs: []string{attrBattery},
	}
	descButton = EntityDescription{
		Key:      "button",
		Platform: PlatformEvent,
	}
)

// profileTable maps a service profile to its candidate presentation
// descriptions. Candidates are filtered per service against the attribute
// names it actually reports; optional companions like battery only survive
// when the service carries the attribute.
var profileTable = map[int][]EntityDescription{
	ProfilePIR:                 {descMotion, descBattery},
	ProfilePlug:                {descSwitch},
	ProfileSmartPlug:           {descSwitch},
	ProfileCurtain:             {descCurtain, descBattery},
	ProfileOnOffLight:          {descOnOffLight},
	ProfileDoorSensor:          {descContact, descBattery},
	ProfileSmartDial:           {descButton, descBattery},
	ProfileSwitchButton:        {descButton, descBattery},
	ProfileColorLight:          {descColorLight},
	ProfileDimmableLight:       {descDimmableLight},
	ProfileDimmableLight2:      {descDimmableLight},
	ProfileHADimmableLight:     {descDimmableLight},
	ProfileColorTempLight:      {descColorTempLight},
	ProfileColorTemperature:    {descColorTempLight},
	ProfileHAColorTempLight:    {descColorTempLight},
	ProfileDimmableColorLight:  {descColorLight},
	ProfileHAColorLight:        {descColorLight},
	ProfileExtendedColorLight:  {descExtendedColorLight},
	ProfileExtendedColorLight2: {descExtendedColorLight},
	ProfileTempHumiditySensor:  {descTemperature, descHumidity, descBattery},
}

// descriptionsForProfile returns the candidate descriptions whose required
// attributes are all present in attrs. The second return is false when the
// profile itself is unknown.
func descriptionsForProfile(profile int, attrs []string) ([]EntityDescription, bool) {
	candidates, ok := profileTable[profile]
	if !ok {
		return nil, false
	}

	present := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		present[a] = struct{}{}
	}

	var out []EntityDescription
	for _, desc := range candidates {
		if hasRequiredAttrs(desc, present) {
			out = append(out, desc)
		}
	}
	return out, true
}

func hasRequiredAttrs(desc EntityDescription, present map[string]struct{}) bool {
	for _, req := range desc.RequiredAttrs {
		if _, ok := present[req]; !ok {
			return false
		}
	}
	return true
}
